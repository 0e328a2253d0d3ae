// Package entity holds the transfer structs shared between the ledger and
// the layers above it.
package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/crmkit/deal-consolidator/constants"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

// Upload is the per-file status/audit row. Status is written exactly twice:
// once at creation ("uploaded") and once with the terminal state.
type Upload struct {
	ID              uuid.UUID                  `json:"id"`
	BatchID         uuid.UUID                  `json:"batch_id"`
	SourceFile      string                     `json:"source_file"`
	UploadTimestamp time.Time                  `json:"upload_timestamp"`
	Status          constants.ProcessingStatus `json:"processing_status"`
	Error           *string                    `json:"error,omitempty"`
}

// StoredDeal is a canonical record plus its originating file.
type StoredDeal struct {
	schema.DealRecord
	SourceFile string `json:"source_file"`
}

// BatchSummary describes one recent batch in the uploads ledger.
type BatchSummary struct {
	BatchID      uuid.UUID `json:"batch_id"`
	LatestUpload time.Time `json:"latest_upload"`
	FilesCount   int       `json:"files_count"`
}
