package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragcompanion/internal/apierrors"
	"ragcompanion/internal/observability"
)

const nonStreamingTimeout = 30 * time.Second

// upstreamHeaders clones the caller's headers but replaces Authorization
// with the server's configured upstream bearer token (or strips it if
// none is configured), so the caller's credentials never reach upstream.
func (s *Server) upstreamHeaders(caller http.Header) http.Header {
	out := caller.Clone()
	out.Del("Authorization")
	out.Del("Content-Length")
	if s.openaiToken != "" {
		out.Set("Authorization", "Bearer "+s.openaiToken)
	}
	out.Set("Content-Type", "application/json")
	return out
}

// forwardNonStreaming issues a bounded request to the upstream and copies
// its body, status, and headers back to the caller verbatim.
func (s *Server) forwardNonStreaming(ctx context.Context, w http.ResponseWriter, method, path string, body []byte, headers http.Header) {
	ctx, cancel := context.WithTimeout(ctx, nonStreamingTimeout)
	defer cancel()

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.openaiURL+path, bodyReader)
	if err != nil {
		writeError(w, 0, fmt.Errorf("%w: build upstream request: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	req.Header = headers

	resp, err := s.httpClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("%w: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("%w: read upstream response: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// forwardStreaming relays the upstream's response byte-for-byte as
// text/event-stream, flushing each chunk as it arrives, with no total
// timeout: the client's request context is the only thing that can cancel
// it, so a disconnect promptly cancels the upstream stream.
func (s *Server) forwardStreaming(r *http.Request, w http.ResponseWriter, path string, body []byte, headers http.Header) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.openaiURL+path, bytes.NewReader(body))
	if err != nil {
		writeError(w, 0, fmt.Errorf("%w: build upstream request: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	req.Header = headers

	resp, err := s.httpClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("%w: %w", apierrors.ErrUpstreamAPI, err))
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				observability.LoggerWithTrace(r.Context()).Warn().Err(readErr).Msg("streaming relay ended with error")
			}
			return
		}
	}
}
