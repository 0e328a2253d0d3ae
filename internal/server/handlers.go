// Package server is the HTTP surface. Handlers stay thin: parse, delegate,
// encode. All domain behavior lives in pipeline, kpi and export.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/export"
	"github.com/crmkit/deal-consolidator/internal/kpi"
	"github.com/crmkit/deal-consolidator/internal/pipeline"
	"github.com/crmkit/deal-consolidator/internal/repository"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

const (
	dealsPreviewLimit   = 10
	defaultBatchesLimit = 20
)

type Handler struct {
	processor *pipeline.Processor
	uploads   repository.UploadRepository
	deals     repository.DealRepository
	exporter  *export.Service
	uploadDir string
	logger    *slog.Logger
}

func NewHandler(
	processor *pipeline.Processor,
	uploads repository.UploadRepository,
	deals repository.DealRepository,
	exporter *export.Service,
	uploadDir string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		processor: processor,
		uploads:   uploads,
		deals:     deals,
		exporter:  exporter,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type uploadResponse struct {
	BatchID         string                `json:"batch_id"`
	Message         string                `json:"message"`
	Files           []pipeline.FileResult `json:"files"`
	DealsPreview    []entity.StoredDeal   `json:"deals_preview"`
	UploadTimestamp time.Time             `json:"upload_timestamp"`
}

// Upload accepts multipart form files under the "files" field, runs the
// whole batch synchronously and returns per-file outcomes.
func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	uploaded := form.File["files"]
	if len(uploaded) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	batchID := uuid.New()
	started := time.Now().UTC()

	files := make([]pipeline.BatchFile, 0, len(uploaded))
	for _, fh := range uploaded {
		name := filepath.Base(fh.Filename)
		dst := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", batchID, name))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			h.logger.Error("upload.save_failed", "batch_id", batchID, "source_file", name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
			return
		}
		files = append(files, pipeline.BatchFile{Path: dst, Name: name})
	}

	results := h.processor.ProcessBatch(c.Request.Context(), batchID, files)

	preview, err := h.deals.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error("upload.preview_failed", "batch_id", batchID, "error", err)
		preview = nil
	}
	if len(preview) > dealsPreviewLimit {
		preview = preview[:dealsPreviewLimit]
	}
	if preview == nil {
		preview = []entity.StoredDeal{}
	}

	c.JSON(http.StatusOK, uploadResponse{
		BatchID:         batchID.String(),
		Message:         fmt.Sprintf("processed %d file(s)", len(results)),
		Files:           results,
		DealsPreview:    preview,
		UploadTimestamp: started,
	})
}

type recordsResponse struct {
	BatchID string              `json:"batch_id"`
	Count   int                 `json:"count"`
	Records []entity.StoredDeal `json:"records"`
}

func (h *Handler) Records(c *gin.Context) {
	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	recs, err := h.deals.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})
		return
	}
	if recs == nil {
		recs = []entity.StoredDeal{}
	}
	c.JSON(http.StatusOK, recordsResponse{
		BatchID: batchID.String(),
		Count:   len(recs),
		Records: recs,
	})
}

type kpisResponse struct {
	BatchID string `json:"batch_id"`
	kpi.Report
}

func (h *Handler) KPIs(c *gin.Context) {
	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	stored, err := h.deals.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load records"})
		return
	}
	recs := make([]schema.DealRecord, len(stored))
	for i, d := range stored {
		recs[i] = d.DealRecord
	}
	c.JSON(http.StatusOK, kpisResponse{BatchID: batchID.String(), Report: kpi.Compute(recs)})
}

func (h *Handler) Batches(c *gin.Context) {
	limit := defaultBatchesLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	batches, err := h.uploads.RecentBatches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	if batches == nil {
		batches = []entity.BatchSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}

func (h *Handler) Export(c *gin.Context) {
	batchID, ok := h.batchID(c)
	if !ok {
		return
	}

	data, err := h.exporter.BatchXLSX(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, export.ErrNoRecords) {
			c.JSON(http.StatusNotFound, gin.H{"error": export.ErrNoRecords.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}

	filename := fmt.Sprintf("crm_deals_%s.xlsx", batchID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// batchID parses the required batch_id query parameter. On failure it writes
// a 400 response and returns ok=false.
func (h *Handler) batchID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Query("batch_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch_id is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch_id must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// EnsureUploadDir creates the upload directory if it is missing.
func EnsureUploadDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
