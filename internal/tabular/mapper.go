// Package tabular turns spreadsheet rows into canonical deal records using
// ordered alias tables. Rows are never dropped; unresolvable fields stay null.
package tabular

import (
	"strings"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

// Per-field alias tables, resolved in order: the first alias present with a
// non-empty value wins.
var (
	dealIDAliases      = []string{"deal_id", "id", "dealid", "deal"}
	clientNameAliases  = []string{"company", "client_name", "client", "account", "customer"}
	dealValueAliases   = []string{"amount", "deal_value", "value", "total", "deal_amount"}
	stageAliases       = []string{"stage", "deal_stage", "pipeline_stage"}
	probabilityAliases = []string{"close_probability_(%)", "close_probability", "probability", "closing_probability", "closing_probability_(%)"}
	ownerAliases       = []string{"owner", "deal_owner", "sales_rep", "salesperson"}
	closeDateAliases   = []string{"expected_close_date", "close_date", "expected_close", "forecast_close_date"}
)

// NormalizeKey canonicalizes a source column name: trim, lowercase,
// spaces to underscores.
func NormalizeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// MapRow maps one row of arbitrary source columns onto the canonical record.
// Every row yields a complete record, even when all fields resolve to null.
func MapRow(row map[string]string) schema.DealRecord {
	r := make(map[string]string, len(row))
	for k, v := range row {
		r[NormalizeKey(k)] = v
	}

	pick := func(aliases []string) *string {
		for _, k := range aliases {
			if v, ok := r[k]; ok && v != "" {
				return &v
			}
		}
		return nil
	}

	rec := schema.DealRecord{
		DealID:            pick(dealIDAliases),
		ClientName:        pick(clientNameAliases),
		Stage:             pick(stageAliases),
		Owner:             pick(ownerAliases),
		ExpectedCloseDate: pick(closeDateAliases),
	}
	if v := pick(dealValueAliases); v != nil {
		rec.DealValue = schema.Number(*v)
	}
	if v := pick(probabilityAliases); v != nil {
		rec.ClosingProbability = schema.Percent(*v)
	}
	return rec
}

// MapRows maps every row; len(out) == len(rows) always.
func MapRows(rows []map[string]string) []schema.DealRecord {
	out := make([]schema.DealRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, MapRow(row))
	}
	return out
}
