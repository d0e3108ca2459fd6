// Command ragcompanion runs the SiYuan RAG companion: an indexer that keeps
// a vector store in sync with a SiYuan workspace, and an OpenAI-compatible
// proxy that injects retrieved context into chat/completion requests.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ragcompanion/internal/config"
	"ragcompanion/internal/embedder"
	"ragcompanion/internal/httpapi"
	"ragcompanion/internal/indexer"
	"ragcompanion/internal/observability"
	"ragcompanion/internal/retrieve"
	"ragcompanion/internal/siyuanapi"
	"ragcompanion/internal/tokenizer"
	"ragcompanion/internal/vectorstore"
)

func main() {
	cfg := config.Load()
	observability.InitLogger(cfg.CompanionLogPath, cfg.CompanionLoggingLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vec, err := vectorstore.New(ctx, cfg.QdrantLocation, cfg.QdrantCollectionName, cfg.EmbeddingDim, vectorstore.MetricCosine)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot ensure vector collection, refusing to start")
	}
	defer vec.Close()

	var emb embedder.Embedder
	if cfg.EmbeddingURL != "" {
		emb = embedder.NewHTTP(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.EmbeddingDim)
	} else {
		emb = embedder.NewDeterministic(cfg.EmbeddingDim)
		log.Warn().Msg("EMBEDDING_URL not set, using deterministic fallback embedder")
	}

	notes := siyuanapi.New(cfg.SiyuanURL, cfg.SiyuanToken)
	tokenizers := tokenizer.NewRegistry(cfg.TokenizerHubURL, log.Logger)
	engine := retrieve.New(vec, emb, notes, 0)

	ix := indexer.New(notes, emb, vec, cfg.CursorPath, sweepInterval(cfg), log.Logger)
	go ix.Run(ctx, cfg.ForceUpdateIndex)

	srv := httpapi.NewServer(engine, tokenizers, cfg.OpenAIURL, cfg.OpenAIToken, cfg.CompanionToken, log.Logger)
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error during http server shutdown")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("companion listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("companion shut down cleanly")
}

func sweepInterval(cfg *config.Config) time.Duration {
	if cfg.SweepIntervalSeconds <= 0 {
		return indexer.DefaultInterval
	}
	return time.Duration(cfg.SweepIntervalSeconds) * time.Second
}
