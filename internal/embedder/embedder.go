// Package embedder converts block text to fixed-dimension unit vectors for
// the vector index.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"sync"
	"time"
)

// Embedder is a process-wide, concurrency-safe encoder from text to a
// fixed-dimension unit-norm vector.
type Embedder interface {
	// Encode returns a single unit-norm vector for text.
	Encode(ctx context.Context, text string) ([]float32, error)
	// Dim returns the output dimensionality.
	Dim() int
}

// httpEmbedder calls a configured HTTP embedding endpoint (a local
// sentence-embedding server speaking the OpenAI embeddings request shape).
// Calls are serialized through mu because not every embedding backend this
// talks to (e.g. llama.cpp-based servers) tolerates concurrent requests.
type httpEmbedder struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
	mu      sync.Mutex
}

// NewHTTP constructs an Embedder backed by an HTTP embedding endpoint.
func NewHTTP(baseURL, model string, dim int) Embedder {
	return &httpEmbedder{
		baseURL: baseURL,
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *httpEmbedder) Dim() int { return h.dim }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (h *httpEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	body, err := json.Marshal(embedRequest{Model: h.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embed endpoint returned %s: %s", resp.Status, string(b))
	}
	var er embedResponse
	if err := json.Unmarshal(b, &er); err != nil {
		return nil, fmt.Errorf("parse embed response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("embed response had no data")
	}
	return normalize(er.Data[0].Embedding), nil
}

// deterministicEmbedder is a dependency-free fallback so the service runs out
// of the box without an embedding server reachable: it hashes byte 3-grams
// into a fixed-size vector and L2-normalizes the result.
type deterministicEmbedder struct{ dim int }

// NewDeterministic constructs a hash-based Embedder of the given dimension.
func NewDeterministic(dim int) Embedder {
	if dim <= 0 {
		dim = 384
	}
	return &deterministicEmbedder{dim: dim}
}

func (d *deterministicEmbedder) Dim() int { return d.dim }

func (d *deterministicEmbedder) Encode(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, d.dim)
	b := []byte(text)
	switch {
	case len(b) == 0:
		return v, nil
	case len(b) < 3:
		addGram(b, v)
	default:
		for i := 0; i <= len(b)-3; i++ {
			addGram(b[i:i+3], v)
		}
	}
	return normalize(v), nil
}

func addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}
