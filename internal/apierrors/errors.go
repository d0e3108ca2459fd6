// Package apierrors defines the sentinel error kinds shared across the
// companion's layers, so a boundary that needs to branch on kind (HTTP
// status mapping, indexer retry decision) can use errors.Is/errors.As
// instead of string matching.
package apierrors

import "errors"

var (
	// ErrUpstreamAPI wraps a failure talking to the notes or LLM upstream.
	ErrUpstreamAPI = errors.New("upstream api error")
	// ErrNotFound is a referenced block or asset that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuth is a missing or invalid companion bearer token.
	ErrAuth = errors.New("unauthorized")
	// ErrInput is a malformed request: missing prompt, empty user message.
	ErrInput = errors.New("invalid input")
	// ErrIndexing is a non-fatal sweep failure; logged, cursor not advanced.
	ErrIndexing = errors.New("indexing error")
	// ErrFatalConfig aborts the process at startup.
	ErrFatalConfig = errors.New("fatal configuration error")
)
