package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLoggerWithTrace_NilContextReturnsGlobalLogger(t *testing.T) {
	l := LoggerWithTrace(nil)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestLoggerWithTrace_AttachesRequestIDAndSweepID(t *testing.T) {
	orig := log.Logger
	defer func() { log.Logger = orig }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSweepID(ctx, "sweep-1")

	LoggerWithTrace(ctx).Info().Msg("hi")

	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if fields["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", fields["request_id"])
	}
	if fields["sweep_id"] != "sweep-1" {
		t.Errorf("sweep_id = %v, want sweep-1", fields["sweep_id"])
	}
}

func TestLoggerWithTrace_OmitsUnsetCorrelationFields(t *testing.T) {
	orig := log.Logger
	defer func() { log.Logger = orig }()

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	LoggerWithTrace(context.Background()).Info().Msg("hi")

	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := fields["request_id"]; ok {
		t.Errorf("did not expect request_id field, got %v", fields["request_id"])
	}
	if _, ok := fields["sweep_id"]; ok {
		t.Errorf("did not expect sweep_id field, got %v", fields["sweep_id"])
	}
}
