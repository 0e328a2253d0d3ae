package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

type stubDeals struct {
	recs []entity.StoredDeal
	err  error
}

func (s *stubDeals) InsertBatch(context.Context, uuid.UUID, string, []schema.DealRecord) error {
	return nil
}

func (s *stubDeals) ListByBatch(context.Context, uuid.UUID) ([]entity.StoredDeal, error) {
	return s.recs, s.err
}

func TestBatchXLSXEmptyBatch(t *testing.T) {
	svc := NewService(&stubDeals{}, nil)
	_, err := svc.BatchXLSX(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestBatchXLSXRoundTrip(t *testing.T) {
	recs := []entity.StoredDeal{
		{
			DealRecord: schema.DealRecord{
				DealID:             schema.Str("D-1"),
				ClientName:         schema.Str("Acme"),
				DealValue:          schema.Float(1000),
				Stage:              schema.Str("Open"),
				ClosingProbability: schema.Float(80),
				Owner:              schema.Str("Sam"),
				ExpectedCloseDate:  schema.Str("2024-06-30"),
			},
			SourceFile: "deals.csv",
		},
		{
			// all-null record still gets its row
			SourceFile: "contract.pdf",
		},
	}
	svc := NewService(&stubDeals{recs: recs}, nil)

	data, err := svc.BatchXLSX(context.Background(), uuid.New())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ConsolidatedDeals")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two records")

	wantHeader := append(append([]string{}, schema.Keys...), "source_file")
	assert.Equal(t, wantHeader, rows[0])

	assert.Equal(t, "D-1", rows[1][0])
	assert.Equal(t, "Acme", rows[1][1])
	assert.Equal(t, "1000", rows[1][2])
	assert.Equal(t, "deals.csv", rows[1][7])

	// the null record's row has only the source file
	require.NotEmpty(t, rows[2])
	assert.Equal(t, "contract.pdf", rows[2][len(rows[2])-1])
}
