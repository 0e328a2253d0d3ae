// Package export writes a batch's consolidated records as an XLSX workbook.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/repository"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

// ErrNoRecords is returned when the batch has nothing to export.
var ErrNoRecords = errors.New("no records found for this batch")

// Service is a tiny façade over the deals repository that produces XLSX bytes.
type Service struct {
	deals  repository.DealRepository
	logger *slog.Logger
}

func NewService(deals repository.DealRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deals: deals, logger: logger}
}

// BatchXLSX returns a workbook (as bytes) with every record of the batch.
func (s *Service) BatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	start := time.Now()

	recs, err := s.deals.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	data, err := buildWorkbook(recs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", batchID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

func buildWorkbook(recs []entity.StoredDeal) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "ConsolidatedDeals"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := append(append([]string{}, schema.Keys...), "source_file")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		writeStr := func(col int, v *string) {
			if v != nil {
				write(col, *v)
			}
		}
		writeFloat := func(col int, v *float64) {
			if v != nil {
				write(col, *v)
			}
		}

		writeStr(1, r.DealID)
		writeStr(2, r.ClientName)
		writeFloat(3, r.DealValue)
		writeStr(4, r.Stage)
		writeFloat(5, r.ClosingProbability)
		writeStr(6, r.Owner)
		writeStr(7, r.ExpectedCloseDate)
		write(8, r.SourceFile)
	}

	_ = f.SetColWidth(sheet, "A", "B", 18)
	_ = f.SetColWidth(sheet, "C", "E", 14)
	_ = f.SetColWidth(sheet, "F", "G", 18)
	_ = f.SetColWidth(sheet, "H", "H", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
