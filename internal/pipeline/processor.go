// Package pipeline drives a batch of uploaded files through extraction and
// persistence. Each file is routed by extension, processed independently,
// and ends in exactly one terminal ledger status.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crmkit/deal-consolidator/constants"
	"github.com/crmkit/deal-consolidator/internal/archive"
	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/llm"
	"github.com/crmkit/deal-consolidator/internal/repository"
	"github.com/crmkit/deal-consolidator/internal/schema"
	"github.com/crmkit/deal-consolidator/internal/tabular"
)

const (
	// previewRecords caps how many extracted records a FileResult carries
	// back to the upload response.
	previewRecords = 3
	// previewTextChars caps the OCR/embedded text echoed in a FileResult.
	previewTextChars = 400
)

// TextExtractor produces plain text from a PDF or image file.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

type Config struct {
	OCRTimeout time.Duration
	LLMTimeout time.Duration
	// Workers bounds concurrent file processing within one batch.
	Workers int
}

func (c *Config) applyDefaults() {
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = 120 * time.Second
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 45 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
}

// FileResult is the per-file outcome reported to the caller of an upload.
type FileResult struct {
	SourceFile     string              `json:"source_file"`
	Status         string              `json:"status"`
	RecordsCount   int                 `json:"records_count,omitempty"`
	RecordsPreview []schema.DealRecord `json:"records_preview,omitempty"`
	TextPreview    string              `json:"text_preview,omitempty"`
	Error          string              `json:"error,omitempty"`
	Children       []FileResult        `json:"children,omitempty"`
}

// BatchFile is one uploaded file already saved to disk.
type BatchFile struct {
	Path string
	Name string
}

type Processor struct {
	uploads   repository.UploadRepository
	deals     repository.DealRepository
	text      TextExtractor
	extractor llm.DealExtractor
	cfg       Config
	logger    *slog.Logger
}

func NewProcessor(
	uploads repository.UploadRepository,
	deals repository.DealRepository,
	text TextExtractor,
	extractor llm.DealExtractor,
	cfg Config,
	logger *slog.Logger,
) *Processor {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		uploads:   uploads,
		deals:     deals,
		text:      text,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// ProcessBatch runs every file of the batch, at most cfg.Workers at a time.
// A failed file never aborts its siblings; results preserve input order.
func (p *Processor) ProcessBatch(ctx context.Context, batchID uuid.UUID, files []BatchFile) []FileResult {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			results[i] = p.ProcessFile(gctx, batchID, f.Path, f.Name)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ProcessFile takes one file through ingest, extraction and persistence.
// Every invocation writes an upload row and leaves it in a terminal status.
func (p *Processor) ProcessFile(ctx context.Context, batchID uuid.UUID, path, name string) FileResult {
	up := &entity.Upload{
		ID:              uuid.New(),
		BatchID:         batchID,
		SourceFile:      name,
		UploadTimestamp: time.Now().UTC(),
		Status:          constants.StatusUploaded,
	}
	if err := p.uploads.Create(ctx, up); err != nil {
		return FileResult{SourceFile: name, Status: string(constants.StatusFailed), Error: err.Error()}
	}

	ext := constants.ExtOf(name)
	if !constants.IsAllowed(ext) {
		msg := fmt.Sprintf("unsupported file type: .%s", ext)
		p.setStatus(ctx, batchID, name, up.ID, constants.StatusRejected, msg)
		p.logger.Warn("pipeline.file.rejected", "batch_id", batchID, "source_file", name, "ext", ext)
		return FileResult{SourceFile: name, Status: string(constants.StatusRejected), Error: msg}
	}

	var res FileResult
	var err error
	switch constants.MapExtToFormat(ext) {
	case constants.TABULAR:
		res, err = p.processTabular(ctx, batchID, path, name, ext)
	case constants.PDF, constants.IMAGE:
		res, err = p.processDocument(ctx, batchID, path, name, ext)
	case constants.ARCHIVE:
		res, err = p.processArchive(ctx, batchID, path, name)
	default:
		err = fmt.Errorf("no processor for extension %q", ext)
	}

	if err != nil {
		p.setStatus(ctx, batchID, name, up.ID, constants.StatusFailed, err.Error())
		p.logger.Error("pipeline.file.failed", "batch_id", batchID, "source_file", name, "error", err)
		return FileResult{SourceFile: name, Status: string(constants.StatusFailed), Error: err.Error()}
	}

	p.setStatus(ctx, batchID, name, up.ID, constants.ProcessingStatus(res.Status), "")
	p.logger.Info("pipeline.file.ok",
		"batch_id", batchID, "source_file", name,
		"status", res.Status, "records", res.RecordsCount,
	)
	return res
}

// setStatus writes the terminal ledger transition. The write may fail after
// the file was already processed; the result still reports the terminal
// status, so the discarded error is logged to keep the mismatch observable.
func (p *Processor) setStatus(ctx context.Context, batchID uuid.UUID, name string, id uuid.UUID, status constants.ProcessingStatus, errMsg string) {
	if err := p.uploads.SetStatus(ctx, id, status, errMsg); err != nil {
		p.logger.Error("pipeline.status_write_failed",
			"batch_id", batchID, "source_file", name, "status", status, "error", err)
	}
}

func (p *Processor) processTabular(ctx context.Context, batchID uuid.UUID, path, name, ext string) (FileResult, error) {
	rows, err := tabular.ReadFile(path, ext)
	if err != nil {
		return FileResult{}, fmt.Errorf("read tabular file: %w", err)
	}

	recs := tabular.MapRows(rows)
	if err := p.deals.InsertBatch(ctx, batchID, name, recs); err != nil {
		return FileResult{}, fmt.Errorf("persist records: %w", err)
	}

	return FileResult{
		SourceFile:     name,
		Status:         string(constants.StatusParsed),
		RecordsCount:   len(recs),
		RecordsPreview: preview(recs),
	}, nil
}

func (p *Processor) processDocument(ctx context.Context, batchID uuid.UUID, path, name, ext string) (FileResult, error) {
	octx, ocancel := context.WithTimeout(ctx, p.cfg.OCRTimeout)
	text, err := p.text.ExtractText(octx, path)
	ocancel()
	if err != nil {
		return FileResult{}, fmt.Errorf("extract text: %w", err)
	}

	hint := "scanned_image_contract"
	if constants.MapExtToFormat(ext) == constants.PDF {
		hint = "pdf_report_or_contract"
	}

	lctx, lcancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	recs, err := p.extractor.ExtractDeals(lctx, llm.ExtractRequest{Text: text, SourceHint: hint})
	lcancel()
	if err != nil {
		return FileResult{}, fmt.Errorf("ai extraction: %w", err)
	}

	if err := p.deals.InsertBatch(ctx, batchID, name, recs); err != nil {
		return FileResult{}, fmt.Errorf("persist records: %w", err)
	}

	return FileResult{
		SourceFile:     name,
		Status:         string(constants.StatusAIExtracted),
		RecordsCount:   len(recs),
		RecordsPreview: preview(recs),
		TextPreview:    clip(text, previewTextChars),
	}, nil
}

func (p *Processor) processArchive(ctx context.Context, batchID uuid.UUID, path, name string) (FileResult, error) {
	res := FileResult{SourceFile: name, Status: string(constants.StatusExpanded)}

	err := archive.Expand(ctx, path, p.logger, func(memberPath, memberName string) {
		child := p.ProcessFile(ctx, batchID, memberPath, fmt.Sprintf("%s/%s", name, memberName))
		res.RecordsCount += child.RecordsCount
		res.Children = append(res.Children, child)
	})
	if err != nil {
		return FileResult{}, fmt.Errorf("expand archive: %w", err)
	}
	return res, nil
}

func preview(recs []schema.DealRecord) []schema.DealRecord {
	if len(recs) <= previewRecords {
		return recs
	}
	return recs[:previewRecords]
}

// clip truncates to n runes, never splitting a multi-byte character.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
