package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ragcompanion/internal/apierrors"
	"ragcompanion/internal/observability"
	"ragcompanion/internal/retrieve"
	"ragcompanion/internal/tokenizer"
)

// handleChatCompletions serves both the RAG and direct chat/completions
// routes. On the RAG path the last user message is replaced with the
// assembled context prompt before forwarding.
func (s *Server) handleChatCompletions(rag bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, payload, err := readJSONObject(r)
		if err != nil {
			writeError(w, 0, err)
			return
		}
		if rag {
			query, err := lastUserMessage(payload)
			if err != nil {
				writeError(w, 0, err)
				return
			}
			rewritten, err := s.rewrite(r, payload, query)
			if err != nil {
				writeError(w, 0, err)
				return
			}
			if err := setLastUserMessage(payload, rewritten); err != nil {
				writeError(w, 0, err)
				return
			}
			raw, err = json.Marshal(payload)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
		}
		s.forward(w, r, "/chat/completions", payload, raw)
	}
}

// handleCompletions serves both the RAG and direct raw-completion routes,
// rewriting payload["prompt"] on the RAG path.
func (s *Server) handleCompletions(rag bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, payload, err := readJSONObject(r)
		if err != nil {
			writeError(w, 0, err)
			return
		}
		if rag {
			query, err := extractPrompt(payload)
			if err != nil {
				writeError(w, 0, err)
				return
			}
			rewritten, err := s.rewrite(r, payload, query)
			if err != nil {
				writeError(w, 0, err)
				return
			}
			payload["prompt"] = rewritten
			raw, err = json.Marshal(payload)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
		}
		s.forward(w, r, "/completions", payload, raw)
	}
}

// rewrite pops an optional tokenizerModel override, resolves a tokenizer,
// and builds the context-injected prompt for query.
func (s *Server) rewrite(r *http.Request, payload map[string]any, query string) (string, error) {
	tokModel := popTokenizerModel(payload)
	if tokModel == "" {
		tokModel = modelName(payload)
	}
	tok := s.tokenizers.Resolve(r.Context(), tokModel)
	rewritten, err := s.engine.BuildPrompt(r.Context(), query, retrieve.DefaultContextLimit, tok)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apierrors.ErrUpstreamAPI, err)
	}
	return rewritten, nil
}

// handlePassthrough forwards a request unchanged (embeddings, models).
func (s *Server) handlePassthrough(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil && r.Method != http.MethodGet {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("%w: read request body: %w", apierrors.ErrInput, err))
				return
			}
			body = b
		}
		headers := s.upstreamHeaders(r.Header)
		s.forwardNonStreaming(r.Context(), w, r.Method, path, body, headers)
	}
}

// handleRetrieve returns the assembled context list directly so the caller
// can do its own prompt assembly.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: parse json: %w", apierrors.ErrInput, err))
		return
	}
	if req.Query == "" {
		writeError(w, 0, fmt.Errorf("%w: missing query", apierrors.ErrInput))
		return
	}
	tok := s.tokenizers.Resolve(r.Context(), tokenizer.DefaultModel)
	segments, err := s.engine.Context(r.Context(), req.Query, req.Limit, tok)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("%w: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	if segments == nil {
		segments = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"context": segments})
}

// forward logs the (redacted) outbound payload and dispatches to the
// streaming or bounded forwarder depending on payload["stream"].
func (s *Server) forward(w http.ResponseWriter, r *http.Request, path string, payload map[string]any, body []byte) {
	observability.LoggerWithTrace(r.Context()).
		Debug().
		RawJSON("payload", observability.RedactJSON(body)).
		Str("path", path).
		Msg("forwarding request upstream")

	headers := s.upstreamHeaders(r.Header)
	if isStreaming(payload) {
		s.forwardStreaming(r, w, path, body, headers)
		return
	}
	s.forwardNonStreaming(r.Context(), w, http.MethodPost, path, body, headers)
}

func readJSONObject(r *http.Request) ([]byte, map[string]any, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read request body: %w", apierrors.ErrInput, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("%w: parse json: %w", apierrors.ErrInput, err)
	}
	return raw, payload, nil
}
