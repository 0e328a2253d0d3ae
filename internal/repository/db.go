// Package repository is the batch ledger: Postgres persistence for upload
// status rows and consolidated deal records, one short transaction per
// logical write.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Open creates a pgx pool for the ledger.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "deal-consolidator"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

const createUploadsSQL = `
CREATE TABLE IF NOT EXISTS uploads (
    id UUID PRIMARY KEY,
    batch_id UUID NOT NULL,
    source_file TEXT NOT NULL,
    upload_timestamp TIMESTAMP NOT NULL,
    processing_status TEXT NOT NULL,
    error TEXT NULL
);`

const createDealsSQL = `
CREATE TABLE IF NOT EXISTS deals (
    id UUID PRIMARY KEY,
    batch_id UUID NOT NULL,
    source_file TEXT NOT NULL,
    deal_id TEXT NULL,
    client_name TEXT NULL,
    deal_value DOUBLE PRECISION NULL,
    stage TEXT NULL,
    closing_probability DOUBLE PRECISION NULL,
    owner TEXT NULL,
    expected_close_date TEXT NULL
);`

// InitSchema creates the ledger tables. Idempotent; safe to run against an
// already-initialized database.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range []string{createUploadsSQL, createDealsSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
