// Package llm holds the extraction contract against the external completion
// endpoint: the prompt that demands strict JSON, the defensive repair of
// whatever comes back, and the mapping onto canonical records.
package llm

import (
	"context"
	"errors"

	"github.com/crmkit/deal-consolidator/internal/schema"
)

// ExtractRequest carries the free text of one document and a hint about
// where it came from (e.g. "scanned_image_contract", "pdf_report_or_contract").
type ExtractRequest struct {
	Text       string
	SourceHint string
}

// DealExtractor converts free text into canonical deal records. The pipeline
// depends on this interface, not on any provider.
type DealExtractor interface {
	ExtractDeals(ctx context.Context, req ExtractRequest) ([]schema.DealRecord, error)
}

// ErrNoInputText is returned when a document produced no text to extract
// from (e.g. OCR found nothing).
var ErrNoInputText = errors.New("no text extracted from source")

// ErrEmptyResponse is returned when the completion endpoint answered with an
// empty or whitespace-only body.
var ErrEmptyResponse = errors.New("completion endpoint returned an empty response")
