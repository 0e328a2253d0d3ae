package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildUserPromptTruncatesText(t *testing.T) {
	long := strings.Repeat("x", MaxPromptChars+5000)
	p := BuildUserPrompt(ExtractRequest{Text: long, SourceHint: "pdf_report_or_contract"})

	assert.LessOrEqual(t, strings.Count(p, "x"), MaxPromptChars)
	assert.Contains(t, p, "pdf_report_or_contract")
}

func TestBuildUserPromptTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("日", MaxPromptChars+100)
	p := BuildUserPrompt(ExtractRequest{Text: long, SourceHint: "pdf_report_or_contract"})

	assert.True(t, utf8.ValidString(p), "truncation must not split a multi-byte rune")
	assert.Equal(t, MaxPromptChars, strings.Count(p, "日"))
}

func TestBuildUserPromptNamesAllKeys(t *testing.T) {
	p := BuildUserPrompt(ExtractRequest{Text: "Deal with Acme worth $5k", SourceHint: "scanned_image_contract"})

	for _, k := range []string{"deal_id", "client_name", "deal_value", "stage", "closing_probability", "owner", "expected_close_date"} {
		assert.Contains(t, p, k)
	}
	assert.Contains(t, p, "Deal with Acme worth $5k")
}
