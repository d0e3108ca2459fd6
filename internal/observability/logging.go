package observability

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the process-wide zerolog logger the companion's
// HTTP handlers and indexer sweeps both log through. If logPath is
// non-empty, log lines go to both stdout and that file (append mode) — the
// companion runs as a background service, so unlike a TUI there's nothing
// on stdout to protect, and operators get the file for a process manager's
// log rotation alongside stdout for interactive runs. If opening the file
// fails, logging falls back to stdout alone and the failure is printed to
// stderr. Every line carries a pid field: the companion is typically run
// one-per-SiYuan-workspace, so operators aggregating several instances'
// logs into one file or stream need the pid to tell them apart.
func InitLogger(logPath string, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var w io.Writer = os.Stdout
	if logPath != "" {
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			w = io.MultiWriter(os.Stdout, f)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", logPath, err)
		}
	}
	log.Logger = log.Output(w).With().Timestamp().Int("pid", os.Getpid()).Logger()
	zerolog.SetGlobalLevel(parseLevel(level))
	// Redirect the standard library logger so ALL logs are captured.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	if l, err := zerolog.ParseLevel(level); err == nil {
		return l
	}
	return zerolog.InfoLevel
}
