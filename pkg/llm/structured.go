package llm

import (
	"encoding/json"
	"strings"
)

// Structured holds a generation result that was expected to be JSON. When
// the output does not parse, Raw carries the text and Parsed is false, so
// callers must handle both cases instead of assuming valid JSON.
type Structured[T any] struct {
	Value  T
	Raw    string
	Parsed bool
}

// ParseStructured decodes raw model output into T. Models often wrap JSON in
// markdown fences or prose, so after a direct parse fails the outermost
// brace-delimited object is tried before degrading to raw text.
func ParseStructured[T any](raw string) Structured[T] {
	s := Structured[T]{Raw: raw}

	candidate := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(candidate), &s.Value); err == nil {
		s.Parsed = true
		return s
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &s.Value); err == nil {
			s.Parsed = true
		}
	}

	return s
}
