// Package retrieve implements the query-time pipeline: embed a query,
// search the vector store, fetch and segment the referenced documents, and
// assemble the final prompt text.
package retrieve

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragcompanion/internal/embedder"
	"ragcompanion/internal/segmenter"
	"ragcompanion/internal/siyuanapi"
	"ragcompanion/internal/vectorstore"
)

// Defaults for limit parameters, matching the reference signatures
// search(query, limit=5) and context/build_prompt(query, limit=3).
const (
	DefaultSearchLimit  = 5
	DefaultContextLimit = 3
)

// Hit is a single vector-search result flattened to its payload fields.
type Hit struct {
	BlockID    string
	DocumentID string
	Content    string
	Score      float32
}

// NotesClient is the subset of siyuanapi.Client the engine depends on.
type NotesClient interface {
	GetDocumentMarkdown(ctx context.Context, documentID string) (string, error)
}

// Engine is the query-time retrieval and prompt-assembly pipeline.
type Engine struct {
	vec              vectorstore.Store
	emb              embedder.Embedder
	notes            NotesClient
	maxSegmentTokens int
}

// New constructs an Engine. maxSegmentTokens is the per-segment token
// budget B passed to the segmenter (default 512 if <= 0).
func New(vec vectorstore.Store, emb embedder.Embedder, notes NotesClient, maxSegmentTokens int) *Engine {
	if maxSegmentTokens <= 0 {
		maxSegmentTokens = 512
	}
	return &Engine{vec: vec, emb: emb, notes: notes, maxSegmentTokens: maxSegmentTokens}
}

var _ NotesClient = (*siyuanapi.Client)(nil)

// Search embeds query and returns the nearest neighbors from the vector
// store, flattened to their payload fields.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	vec, err := e.emb.Encode(ctx, query)
	if err != nil {
		return nil, err
	}
	raw, err := e.vec.Query(ctx, vec, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, Hit{
			BlockID:    h.Payload["block_id"],
			DocumentID: h.Payload["document_id"],
			Content:    h.Payload["content"],
			Score:      h.Score,
		})
	}
	return hits, nil
}

// Context returns the deduplicated, token-bounded context segments for
// query: search, concurrently fetch each referenced document's markdown,
// segment it against the matching block contents, then dedupe and
// truncate to 2*limit.
func (e *Engine) Context(ctx context.Context, query string, limit int, tok segmenter.Tokenizer) ([]string, error) {
	if limit <= 0 {
		limit = DefaultContextLimit
	}
	hits, err := e.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	var docOrder []string
	matchingByDoc := make(map[string][]string)
	seenDoc := make(map[string]bool)
	for _, h := range hits {
		if !seenDoc[h.DocumentID] {
			seenDoc[h.DocumentID] = true
			docOrder = append(docOrder, h.DocumentID)
		}
		matchingByDoc[h.DocumentID] = append(matchingByDoc[h.DocumentID], h.Content)
	}

	segsByDoc := make([][]string, len(docOrder))
	g, gctx := errgroup.WithContext(ctx)
	for i, docID := range docOrder {
		i, docID := i, docID
		g.Go(func() error {
			md, err := e.notes.GetDocumentMarkdown(gctx, docID)
			if err != nil {
				return err
			}
			segs, err := segmenter.Segment(md, matchingByDoc[docID], e.maxSegmentTokens, tok)
			if err != nil {
				return err
			}
			segsByDoc[i] = segs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, segs := range segsByDoc {
		for _, s := range segs {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	if cap := 2 * limit; len(all) > cap {
		all = all[:cap]
	}
	return all, nil
}

// BuildPrompt assembles the final prompt text for query. The block between
// "Additional context:" and "Question:" is empty when no context is
// produced, but the "Question:"/"Answer:" scaffolding is always present.
func (e *Engine) BuildPrompt(ctx context.Context, query string, limit int, tok segmenter.Tokenizer) (string, error) {
	segs, err := e.Context(ctx, query, limit, tok)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("Additional context:\n\n")
	for _, s := range segs {
		sb.WriteString(s)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer: \n\n")
	return sb.String(), nil
}
