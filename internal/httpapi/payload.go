package httpapi

import (
	"fmt"

	"ragcompanion/internal/apierrors"
)

// popTokenizerModel removes and returns payload["tokenizerModel"], letting
// a caller request tokenization against a hub model name distinct from the
// model it asks the upstream LLM to serve.
func popTokenizerModel(payload map[string]any) string {
	v, ok := payload["tokenizerModel"]
	if !ok {
		return ""
	}
	delete(payload, "tokenizerModel")
	s, _ := v.(string)
	return s
}

func modelName(payload map[string]any) string {
	s, _ := payload["model"].(string)
	return s
}

func isStreaming(payload map[string]any) bool {
	v, _ := payload["stream"].(bool)
	return v
}

// lastUserMessage returns the content of the last role:"user" message in
// payload["messages"].
func lastUserMessage(payload map[string]any) (string, error) {
	msgs, ok := payload["messages"].([]any)
	if !ok {
		return "", fmt.Errorf("%w: missing messages array", apierrors.ErrInput)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		m, ok := msgs[i].(map[string]any)
		if !ok {
			continue
		}
		if role, _ := m["role"].(string); role == "user" {
			content, _ := m["content"].(string)
			if content == "" {
				return "", fmt.Errorf("%w: empty user message", apierrors.ErrInput)
			}
			return content, nil
		}
	}
	return "", fmt.Errorf("%w: no user message found", apierrors.ErrInput)
}

// setLastUserMessage replaces the content of the last role:"user" message.
func setLastUserMessage(payload map[string]any, content string) error {
	msgs, _ := payload["messages"].([]any)
	for i := len(msgs) - 1; i >= 0; i-- {
		m, ok := msgs[i].(map[string]any)
		if !ok {
			continue
		}
		if role, _ := m["role"].(string); role == "user" {
			m["content"] = content
			return nil
		}
	}
	return fmt.Errorf("%w: no user message found", apierrors.ErrInput)
}

func extractPrompt(payload map[string]any) (string, error) {
	p, ok := payload["prompt"].(string)
	if !ok || p == "" {
		return "", fmt.Errorf("%w: missing prompt", apierrors.ErrInput)
	}
	return p, nil
}
