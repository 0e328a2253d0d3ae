package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmkit/deal-consolidator/internal/common"
	"github.com/crmkit/deal-consolidator/internal/entity"
	"github.com/crmkit/deal-consolidator/internal/schema"
)

type DealRepository interface {
	// InsertBatch persists all records produced from one source file in a
	// single transaction.
	InsertBatch(ctx context.Context, batchID uuid.UUID, sourceFile string, recs []schema.DealRecord) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]entity.StoredDeal, error)
}

type dealRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDealRepository(pool *pgxpool.Pool, logger *slog.Logger) DealRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &dealRepo{pool: pool, logger: logger}
}

func (r *dealRepo) InsertBatch(ctx context.Context, batchID uuid.UUID, sourceFile string, recs []schema.DealRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin insert: %w", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, d := range recs {
		_, err := tx.Exec(ctx, `
			INSERT INTO deals (id, batch_id, source_file, deal_id, client_name, deal_value,
			                   stage, closing_probability, owner, expected_close_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New(), batchID, sourceFile,
			d.DealID, d.ClientName, d.DealValue, d.Stage,
			d.ClosingProbability, d.Owner, d.ExpectedCloseDate,
		)
		if err != nil {
			r.logger.Error("failed to insert deal", "batch_id", batchID, "source_file", sourceFile, "error", err)
			return fmt.Errorf("%w: insert deal: %w", common.ErrDatabase, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *dealRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]entity.StoredDeal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT deal_id, client_name, deal_value, stage, closing_probability, owner,
		       expected_close_date, source_file
		FROM deals
		WHERE batch_id = $1
		ORDER BY source_file`,
		batchID,
	)
	if err != nil {
		r.logger.Error("failed to list deals", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("%w: list deals: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.StoredDeal
	for rows.Next() {
		var d entity.StoredDeal
		if err := rows.Scan(
			&d.DealID, &d.ClientName, &d.DealValue, &d.Stage,
			&d.ClosingProbability, &d.Owner, &d.ExpectedCloseDate, &d.SourceFile,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
