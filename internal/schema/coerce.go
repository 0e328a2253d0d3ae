package schema

import (
	"strconv"
	"strings"
)

// Number parses a numeric value after stripping thousands separators.
// Returns nil on any parse failure; coercion never errors.
func Number(v any) *float64 {
	s, ok := asString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	return parse(s)
}

// Money parses a monetary amount, additionally stripping common currency
// symbols. Used for model output, where amounts arrive as "$12,000" and
// similar.
func Money(v any) *float64 {
	s, ok := asString(v)
	if !ok {
		return nil
	}
	for _, sym := range []string{"$", "€", "£", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	return parse(strings.TrimSpace(s))
}

// Percent parses a probability given as a percentage, tolerating a trailing
// percent sign. No range normalization is applied.
func Percent(v any) *float64 {
	s, ok := asString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return parse(s)
}

// Probability parses a closing probability from model output. Values in
// [0, 1] are treated as fractional form and scaled to 0-100.
func Probability(v any) *float64 {
	p := Percent(v)
	if p == nil {
		return nil
	}
	if *p >= 0 && *p <= 1 {
		scaled := *p * 100.0
		return &scaled
	}
	return p
}

func parse(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// asString renders a scalar as text for parsing. JSON numbers decode as
// float64, so format them without exponent noise.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return "", false
	}
}

// looseString keeps non-empty text; numeric scalars are rendered as text
// (tabular IDs often round-trip through JSON as numbers).
func looseString(v any) *string {
	s, ok := asString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
