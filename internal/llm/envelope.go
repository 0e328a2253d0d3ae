package llm

import (
	"fmt"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

// envelopeSchema constrains a repaired response to {"deals": [...]}. "deals"
// may be absent (treated as zero records); when present it must be an array.
// Individual entries are not constrained here: non-object entries are skipped
// during decoding rather than failing the whole response.
func envelopeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"deals": map[string]any{"type": "array"},
		},
	}
}

// DecodeDeals validates the repaired document and maps each entry onto the
// canonical record: unknown keys dropped, missing keys null, numeric fields
// coerced leniently. The model's shape is never trusted verbatim.
func DecodeDeals(doc map[string]any) ([]schema.DealRecord, error) {
	if err := ValidateAgainstSchema(envelopeSchema(), doc); err != nil {
		return nil, fmt.Errorf("completion shape: %w", err)
	}

	raw, _ := doc["deals"].([]any)
	recs := make([]schema.DealRecord, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		recs = append(recs, schema.FromLoose(obj))
	}
	return recs, nil
}
