// Package httpapi exposes the companion's OpenAI-compatible proxy surface:
// a RAG path that rewrites chat/completion payloads with retrieved context
// before forwarding upstream, and a direct path that forwards unchanged.
package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"ragcompanion/internal/retrieve"
	"ragcompanion/internal/tokenizer"
)

// Server is the companion's HTTP handler.
type Server struct {
	mux *http.ServeMux

	engine     *retrieve.Engine
	tokenizers *tokenizer.Registry

	openaiURL      string
	openaiToken    string
	companionToken string

	httpClient *http.Client
	log        zerolog.Logger
}

// NewServer constructs the Proxy Handler. companionToken, when non-empty,
// gates every route but /health behind Authorization: Bearer <token>.
func NewServer(engine *retrieve.Engine, tokenizers *tokenizer.Registry, openaiURL, openaiToken, companionToken string, log zerolog.Logger) *Server {
	s := &Server{
		engine:         engine,
		tokenizers:     tokenizers,
		openaiURL:      openaiURL,
		openaiToken:    openaiToken,
		companionToken: companionToken,
		httpClient:     &http.Client{},
		log:            log,
		mux:            http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /openai/rag/v1/chat/completions", withRequestID(s.auth(s.handleChatCompletions(true))))
	s.mux.HandleFunc("POST /openai/direct/v1/chat/completions", withRequestID(s.auth(s.handleChatCompletions(false))))
	s.mux.HandleFunc("POST /openai/rag/v1/completions", withRequestID(s.auth(s.handleCompletions(true))))
	s.mux.HandleFunc("POST /openai/direct/v1/completions", withRequestID(s.auth(s.handleCompletions(false))))

	s.mux.HandleFunc("POST /openai/rag/v1/embeddings", withRequestID(s.auth(s.handlePassthrough("/embeddings"))))
	s.mux.HandleFunc("POST /openai/direct/v1/embeddings", withRequestID(s.auth(s.handlePassthrough("/embeddings"))))
	s.mux.HandleFunc("GET /openai/rag/v1/models", withRequestID(s.auth(s.handlePassthrough("/models"))))
	s.mux.HandleFunc("GET /openai/direct/v1/models", withRequestID(s.auth(s.handlePassthrough("/models"))))

	s.mux.HandleFunc("POST /openai/direct/v1/retrieve", withRequestID(s.auth(s.handleRetrieve)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
