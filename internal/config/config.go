// Package config loads the companion's runtime configuration from the
// environment, following the env-var-driven, defaults-applied-after-parsing
// style the rest of this stack uses.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every env-overridable setting listed in the external
// interfaces section of the specification.
type Config struct {
	SiyuanURL   string
	SiyuanToken string

	QdrantLocation       string
	QdrantCollectionName string

	OpenAIURL   string
	OpenAIToken string

	CompanionToken        string
	CompanionLoggingLevel string
	// CompanionLogPath, when set, also writes logs to that file (in
	// addition to stdout); empty means stdout only.
	CompanionLogPath string

	ForceUpdateIndex bool

	// EmbeddingURL, when set, selects the HTTP embedder; otherwise the
	// deterministic fallback embedder is used.
	EmbeddingURL   string
	EmbeddingModel string
	EmbeddingDim   int

	// TokenizerHubURL is the model-hub endpoint the Tokenizer Registry
	// attempts to resolve non-gpt* model names against.
	TokenizerHubURL string

	// SweepIntervalSeconds controls how often the Indexer runs, in seconds.
	SweepIntervalSeconds int

	// CursorPath is the path to the persisted "last_update" cursor file.
	CursorPath string

	// HTTPAddr is the address the companion's HTTP server listens on.
	HTTPAddr string
}

// Load reads .env (if present) and then the process environment, applying
// defaults for anything left unset. It never errors: a misconfigured value
// either falls back to a safe default or is surfaced lazily the first time a
// dependent component tries to use it (matching the spec's FatalConfigError
// being reserved for the vector-collection-cannot-be-ensured startup check,
// not for merely-missing optional env vars).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		SiyuanURL:             firstNonEmpty(os.Getenv("SIYUAN_URL"), "http://127.0.0.1:6806"),
		SiyuanToken:           os.Getenv("SIYUAN_TOKEN"),
		QdrantLocation:        firstNonEmpty(os.Getenv("QDRANT_LOCATION"), "http://127.0.0.1:6334"),
		QdrantCollectionName:  firstNonEmpty(os.Getenv("QDRANT_COLLECTION_NAME"), "siyuan_blocks"),
		OpenAIURL:             firstNonEmpty(os.Getenv("OPENAI_URL"), "https://api.openai.com/v1"),
		OpenAIToken:           os.Getenv("OPENAI_TOKEN"),
		CompanionToken:        os.Getenv("COMPANION_TOKEN"),
		CompanionLoggingLevel: firstNonEmpty(os.Getenv("COMPANION_LOGGING_LEVEL"), "info"),
		CompanionLogPath:      os.Getenv("COMPANION_LOG_PATH"),
		ForceUpdateIndex:      parseBoolEnv("FORCE_UPDATE_INDEX", false),
		EmbeddingURL:          os.Getenv("EMBEDDING_URL"),
		EmbeddingModel:        firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "all-MiniLM-L6-v2"),
		EmbeddingDim:          parseIntEnv("EMBEDDING_DIM", 384),
		TokenizerHubURL:       os.Getenv("TOKENIZER_HUB_URL"),
		SweepIntervalSeconds:  parseIntEnv("SWEEP_INTERVAL_SECONDS", 300),
		CursorPath:            firstNonEmpty(os.Getenv("CURSOR_PATH"), "last_update"),
		HTTPAddr:              firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8787"),
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseBoolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
