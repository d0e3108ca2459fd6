package observability

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sweepIDKey
)

// WithRequestID attaches a per-proxy-request correlation ID to ctx, so every
// log line emitted while handling that request — including ones produced
// deep in the streaming relay (internal/httpapi/forward.go) — carries the
// same request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithSweepID attaches a per-indexer-sweep correlation ID to ctx, so every
// log line produced while a sweep fetches, embeds, and upserts one batch of
// updated blocks (internal/indexer) shares a sweep_id, distinguishing it
// from the next tick's sweep and from concurrent proxy request logs.
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, sweepIDKey, sweepID)
}

// LoggerWithTrace returns the global logger enriched with whatever
// correlation identifiers ctx carries: trace_id/span_id from OpenTelemetry,
// plus request_id or sweep_id, whichever the caller attached, so the lines
// of one proxy request or one indexer sweep can be picked out of the log
// even though requests and sweeps run on different goroutines.
func LoggerWithTrace(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if ctx == nil {
		return &l
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With().Str("trace_id", sc.TraceID().String()).Logger()
		if sc.HasSpanID() {
			l = l.With().Str("span_id", sc.SpanID().String()).Logger()
		}
		if sc.IsSampled() {
			l = l.With().Bool("trace_sampled", true).Logger()
		}
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		l = l.With().Str("request_id", requestID).Logger()
	}
	if sweepID, ok := ctx.Value(sweepIDKey).(string); ok && sweepID != "" {
		l = l.With().Str("sweep_id", sweepID).Logger()
	}
	return &l
}
