package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmkit/deal-consolidator/constants"
	"github.com/crmkit/deal-consolidator/internal/common"
	"github.com/crmkit/deal-consolidator/internal/entity"
)

type UploadRepository interface {
	Create(ctx context.Context, u *entity.Upload) error
	SetStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus, errMsg string) error
	RecentBatches(ctx context.Context, limit int) ([]entity.BatchSummary, error)
}

type uploadRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewUploadRepository(pool *pgxpool.Pool, logger *slog.Logger) UploadRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &uploadRepo{pool: pool, logger: logger}
}

func (r *uploadRepo) Create(ctx context.Context, u *entity.Upload) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO uploads (id, batch_id, source_file, upload_timestamp, processing_status, error)
		VALUES ($1, $2, $3, $4, $5, NULL)`,
		u.ID, u.BatchID, u.SourceFile, u.UploadTimestamp, string(u.Status),
	)
	if err != nil {
		r.logger.Error("failed to create upload row", "batch_id", u.BatchID, "source_file", u.SourceFile, "error", err)
		return fmt.Errorf("%w: create upload row: %w", common.ErrDatabase, err)
	}
	return nil
}

// SetStatus records the single terminal transition of an upload row. An
// empty errMsg stores NULL.
func (r *uploadRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE uploads SET processing_status = $1, error = NULLIF($2, '') WHERE id = $3`,
		string(status), errMsg, id,
	)
	if err != nil {
		r.logger.Error("failed to update upload status", "upload_id", id, "status", status, "error", err)
		return fmt.Errorf("%w: update upload status: %w", common.ErrDatabase, err)
	}
	return nil
}

func (r *uploadRepo) RecentBatches(ctx context.Context, limit int) ([]entity.BatchSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT batch_id, MAX(upload_timestamp) AS latest_upload, COUNT(*) AS files_count
		FROM uploads
		GROUP BY batch_id
		ORDER BY latest_upload DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		r.logger.Error("failed to list recent batches", "error", err)
		return nil, fmt.Errorf("%w: list recent batches: %w", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.BatchSummary
	for rows.Next() {
		var s entity.BatchSummary
		if err := rows.Scan(&s.BatchID, &s.LatestUpload, &s.FilesCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
