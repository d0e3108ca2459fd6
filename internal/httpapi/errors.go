package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"ragcompanion/internal/apierrors"
)

var errUnauthorized = errors.New("missing or invalid bearer token")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes {error: <message>} at status. If status is zero it is
// derived from err's sentinel kind.
func writeError(w http.ResponseWriter, status int, err error) {
	if status == 0 {
		status = statusFor(err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apierrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apierrors.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, apierrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apierrors.ErrUpstreamAPI):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
