// Package schema defines the canonical deal record that every source is
// reconciled onto, plus the lenient numeric coercion rules for its fields.
package schema

// DealRecord is the unified CRM shape. All fields are nullable; a marshaled
// record always carries exactly these seven keys, absent data as JSON null.
type DealRecord struct {
	DealID             *string  `json:"deal_id"`
	ClientName         *string  `json:"client_name"`
	DealValue          *float64 `json:"deal_value"`
	Stage              *string  `json:"stage"`
	ClosingProbability *float64 `json:"closing_probability"` // percent, 0-100
	Owner              *string  `json:"owner"`
	ExpectedCloseDate  *string  `json:"expected_close_date"` // YYYY-MM-DD preferred
}

// Keys lists the canonical field names in wire order.
var Keys = []string{
	"deal_id",
	"client_name",
	"deal_value",
	"stage",
	"closing_probability",
	"owner",
	"expected_close_date",
}

// FromLoose builds a complete record from an untrusted decoded JSON object,
// e.g. one entry of a model response. Unknown keys are dropped, missing keys
// stay null, and numeric fields go through the lenient coercions below. The
// result can never be a partial record.
func FromLoose(m map[string]any) DealRecord {
	return DealRecord{
		DealID:             looseString(m["deal_id"]),
		ClientName:         looseString(m["client_name"]),
		DealValue:          Money(m["deal_value"]),
		Stage:              looseString(m["stage"]),
		ClosingProbability: Probability(m["closing_probability"]),
		Owner:              looseString(m["owner"]),
		ExpectedCloseDate:  looseString(m["expected_close_date"]),
	}
}

// Str returns a pointer to s. Convenience for literals in callers and tests.
func Str(s string) *string { return &s }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
