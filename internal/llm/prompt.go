package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

// MaxPromptChars bounds the document text embedded in the prompt (counted in
// runes, so OCR output with multi-byte characters is never cut mid-rune), to
// bound cost and context size.
const MaxPromptChars = 12000

// SystemPrompt is the instruction that pins the model to JSON-only output.
func SystemPrompt() string {
	return "You are a data extraction engine. Output ONLY a valid JSON object. No prose."
}

// fieldTypes is the machine-readable description of expected types embedded
// in the user prompt.
var fieldTypes = map[string]string{
	"deal_id":             "string or null",
	"client_name":         "string or null",
	"deal_value":          "number or null",
	"stage":               "string or null",
	"closing_probability": "number (0-100) or null",
	"owner":               "string or null",
	"expected_close_date": "string (YYYY-MM-DD preferred) or null",
}

// BuildUserPrompt composes the extraction prompt: the exact canonical key
// list, the type schema, the source hint, and the (truncated) document text.
func BuildUserPrompt(req ExtractRequest) string {
	text := req.Text
	if r := []rune(text); len(r) > MaxPromptChars {
		text = string(r[:MaxPromptChars])
	}
	typesJSON, _ := json.MarshalIndent(fieldTypes, "", "  ")

	var b strings.Builder
	b.WriteString("You are a data extraction engine for CRM deal documents.\n")
	b.WriteString("Extract CRM deals from the provided text and return ONLY valid JSON.\n\n")
	b.WriteString("Return a JSON object with this shape:\n")
	b.WriteString("{\n  \"deals\": [ {...}, {...} ]\n}\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Output MUST be strict JSON only. No explanations.\n")
	fmt.Fprintf(&b, "- Each deal object MUST contain EXACTLY these keys: %s\n", strings.Join(schema.Keys, ", "))
	b.WriteString("- If a field is missing, use null.\n")
	b.WriteString("- closing_probability must be a number 0-100 (percent). If given as 0-1, convert to 0-100.\n")
	b.WriteString("- deal_value must be numeric (remove commas/currency symbols).\n")
	b.WriteString("- Normalize field names from messy sources.\n")
	b.WriteString("- Do NOT invent deals not present.\n\n")
	fmt.Fprintf(&b, "Source type hint: %s\n\n", req.SourceHint)
	fmt.Fprintf(&b, "Schema:\n%s\n\n", typesJSON)
	fmt.Fprintf(&b, "TEXT:\n\"\"\"%s\"\"\"", text)
	return b.String()
}
