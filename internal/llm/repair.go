package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseOutcome tags how a raw completion was turned into JSON.
type ParseOutcome int

const (
	// ParsedDirect means the response body parsed as-is.
	ParsedDirect ParseOutcome = iota
	// ParsedSalvaged means prose had to be stripped around a {...} block.
	ParsedSalvaged
)

// ParseResult is the outcome of the defensive parse.
type ParseResult struct {
	Doc     map[string]any
	Outcome ParseOutcome
}

// errSnippetChars bounds how much raw response text an error may carry.
const errSnippetChars = 200

// RepairJSON parses a raw completion defensively: direct parse first, then
// the first-'{' to last-'}' substring. Pure function of the raw string.
func RepairJSON(raw string) (ParseResult, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParseResult{}, ErrEmptyResponse
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err == nil {
		return ParseResult{Doc: doc, Outcome: ParsedDirect}, nil
	}

	// salvage: the model often wraps the object in prose
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(s[start:end+1]), &doc); err == nil {
			return ParseResult{Doc: doc, Outcome: ParsedSalvaged}, nil
		}
	}

	return ParseResult{}, fmt.Errorf("completion is not JSON; starts with %q", snippet(s, errSnippetChars))
}

// snippet truncates on a rune boundary so the diagnostic stays valid UTF-8.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
