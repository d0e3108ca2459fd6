// Package tokenizer resolves a model name to a token counter, with a
// three-tier fallback chain and a bounded, expiring cache of resolved
// counters.
package tokenizer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// Tokenizer counts tokens in text.
type Tokenizer interface {
	Count(text string) int
}

// Registry resolves model names to Tokenizer instances. Unlike the
// reference implementation's process-wide "currently selected model",
// a Registry keeps no selected model: every Resolve call names the model
// it wants, so one Registry shared by concurrent requests for different
// models never lets one request change what another resolves. The only
// shared state is the mutex-guarded cache of resolved tokenizers.
type Registry struct {
	hubURL string
	client *http.Client
	log    zerolog.Logger
	cache  *tokenCache
}

// DefaultModel is used when a caller supplies no model name, matching the
// reference implementation's process-wide default.
const DefaultModel = "gpt-3.5-turbo"

// NewRegistry constructs a Registry. hubURL is a model-hub endpoint used to
// resolve non-gpt* model names; gpt* names never consult the hub — they
// resolve to a real tiktoken BPE encoding. An empty hubURL means the hub
// tier always falls through to the heuristic counter.
func NewRegistry(hubURL string, log zerolog.Logger) *Registry {
	return &Registry{
		hubURL: hubURL,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		cache:  newTokenCache(tokenCacheConfig{}),
	}
}

// Resolve returns the Tokenizer for modelName, constructing and caching it
// on first use. Setting the same name twice is a cache hit, a no-op.
func (r *Registry) Resolve(ctx context.Context, modelName string) Tokenizer {
	if modelName == "" {
		modelName = DefaultModel
	}
	if t, ok := r.cache.get(modelName); ok {
		return t
	}

	var t Tokenizer
	switch {
	case strings.HasPrefix(modelName, "gpt"):
		t = r.resolveOpenAI(modelName)
	default:
		t = r.resolveHub(ctx, modelName)
	}
	r.cache.set(modelName, t)
	return t
}

// resolveOpenAI resolves a gpt* model name to a real BPE counter via
// tiktoken-go: the model's own encoding when tiktoken recognizes it, else
// the cl100k_base encoding every current gpt-3.5/gpt-4-family model uses.
// Only an encoding tiktoken has never heard of at all falls back to the
// heuristic counter.
func (r *Registry) resolveOpenAI(modelName string) Tokenizer {
	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		r.log.Warn().Str("model", modelName).Err(err).Msg("tiktoken encoding unavailable, falling back to heuristic counter")
		return heuristicTokenizer{}
	}
	return &bpeTokenizer{enc: enc}
}

// bpeTokenizer counts tokens with a loaded tiktoken BPE encoding.
type bpeTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (b *bpeTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

func (r *Registry) resolveHub(ctx context.Context, modelName string) Tokenizer {
	if r.hubURL == "" {
		r.log.Warn().Str("model", modelName).Msg("tokenizer hub not configured, falling back to heuristic counter")
		return heuristicTokenizer{}
	}
	if !r.probe(ctx, r.hubURL, modelName) {
		r.log.Warn().Str("model", modelName).Msg("tokenizer hub load failed, falling back to heuristic counter")
		return heuristicTokenizer{}
	}
	return &httpTokenizer{url: r.hubURL, model: modelName, client: r.client}
}

// probe performs a cheap reachability check so a dead endpoint doesn't get
// cached as a live httpTokenizer only to fail on every subsequent count.
func (r *Registry) probe(ctx context.Context, url, modelName string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(tokenizeBody("", modelName)))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}

type tokenizeRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type tokenizeResponse struct {
	TokenCount int   `json:"token_count"`
	Tokens     []int `json:"tokens"`
}

func tokenizeBody(text, model string) []byte {
	b, _ := json.Marshal(tokenizeRequest{Model: model, Input: text})
	return b
}

// httpTokenizer counts tokens via a remote model-hub tokenize endpoint,
// falling back to the heuristic counter on any request error so a
// transient outage never surfaces as a hard failure to the caller.
type httpTokenizer struct {
	url    string
	model  string
	client *http.Client
}

func (h *httpTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(tokenizeBody(text, h.model)))
	if err != nil {
		return heuristicTokenizer{}.Count(text)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return heuristicTokenizer{}.Count(text)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return heuristicTokenizer{}.Count(text)
	}
	var tr tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return heuristicTokenizer{}.Count(text)
	}
	if tr.TokenCount > 0 {
		return tr.TokenCount
	}
	if len(tr.Tokens) > 0 {
		return len(tr.Tokens)
	}
	return heuristicTokenizer{}.Count(text)
}

// heuristicTokenizer is the chars/4 fallback standing in for a notional
// BERT-base general-purpose tier when the model hub is unreachable, and
// for the rare gpt* name tiktoken itself cannot resolve to any encoding.
type heuristicTokenizer struct{}

func (heuristicTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
