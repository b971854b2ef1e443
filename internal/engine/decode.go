package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty narrator response")
	// ErrMalformedPayload is returned when the text is neither JSON nor YAML
	// of the expected shape.
	ErrMalformedPayload = errors.New("malformed narrator payload")
)

// Decode parses a narrator reply into T. Markdown fences and any prose
// around the outermost object are dropped. JSON is tried first; YAML is the
// fallback for models that drift out of strict JSON.
func Decode[T any](text string) (T, error) {
	var out T
	cleaned := clean(text)
	if cleaned == "" {
		return out, ErrEmptyResponse
	}

	jsonErr := json.Unmarshal([]byte(cleaned), &out)
	if jsonErr == nil {
		return out, nil
	}

	var fallback T
	if err := yaml.Unmarshal([]byte(cleaned), &fallback); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformedPayload, jsonErr)
	}
	return fallback, nil
}

func clean(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```yaml")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}
