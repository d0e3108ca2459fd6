package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"ragcompanion/internal/observability"
)

// withRequestID stamps every inbound request with a correlation ID, echoed
// back as X-Request-Id and attached to the request context so every log
// line produced while handling it — the redacted payload debug log in
// forward() and any streaming relay error in forward.go included — carries
// the same request_id, regardless of which goroutine emits it.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	}
}
