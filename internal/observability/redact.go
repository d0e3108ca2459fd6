package observability

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sensitiveKeys covers the credential-shaped fields that turn up in an
// OpenAI-compatible chat/completion request body: a bearer token or api key
// occasionally duplicated into the JSON payload itself (some client SDKs do
// this) rather than staying confined to the Authorization header.
var sensitiveKeys = []string{
	"api_key", "apikey", "authorization", "token", "secret",
}

// maxLoggedValueLen caps how much of any single string value RedactJSON
// lets through. On the RAG path (internal/httpapi) the forwarded body's
// last user message has been rewritten with content pulled straight out of
// the caller's personal SiYuan knowledge base (internal/retrieve), not just
// a short chat turn, so without a cap one debug-level log line can dump an
// entire private note into the log file.
const maxLoggedValueLen = 500

// RedactJSON walks raw, replaces the value of any key matching
// sensitiveKeys with a placeholder, and truncates any remaining string
// value longer than maxLoggedValueLen, so forwarded request bodies —
// credentials and retrieved note content alike — can be logged at debug
// level without leaking more than a preview. Invalid or empty input is
// returned unchanged.
func RedactJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	b, err := json.Marshal(redactValue(v))
	if err != nil {
		return raw
	}
	return b
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, vv := range val {
			if isSensitiveKey(k) {
				val[k] = "[REDACTED]"
			} else {
				val[k] = redactValue(vv)
			}
		}
		return val
	case []any:
		for i := range val {
			val[i] = redactValue(val[i])
		}
		return val
	case string:
		return truncateValue(val)
	default:
		return v
	}
}

func truncateValue(s string) string {
	if len(s) <= maxLoggedValueLen {
		return s
	}
	return fmt.Sprintf("%s...[%d more bytes truncated]", s[:maxLoggedValueLen], len(s)-maxLoggedValueLen)
}

func isSensitiveKey(k string) bool {
	low := strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}
