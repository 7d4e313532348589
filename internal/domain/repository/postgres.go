package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	DB *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresRepository{DB: db}, nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS conflation_runs (
		id                  BIGSERIAL PRIMARY KEY,
		started_at          TIMESTAMPTZ NOT NULL,
		finished_at         TIMESTAMPTZ NOT NULL,
		bbox                TEXT NOT NULL,
		radius_meters       DOUBLE PRECISION NOT NULL,
		local_features      INTEGER NOT NULL,
		reference_features  INTEGER NOT NULL,
		skipped_reference   INTEGER NOT NULL,
		empty_reference     BOOLEAN NOT NULL,
		missing             INTEGER NOT NULL,
		incomplete          INTEGER NOT NULL,
		extra               INTEGER NOT NULL,
		mean_match_distance DOUBLE PRECISION NOT NULL,
		files               JSONB NOT NULL,
		recorded_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// EnsureSchema creates the run history table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create conflation_runs: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.DB.Close()
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID         int64   `db:"id"`
	BBox       string  `db:"bbox"`
	Missing    int     `db:"missing"`
	Incomplete int     `db:"incomplete"`
	Extra      int     `db:"extra"`
	Radius     float64 `db:"radius_meters"`
}

// LatestRuns returns the most recent runs, newest first.
func (r *PostgresRepository) LatestRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	const query = `
		SELECT id, bbox, missing, incomplete, extra, radius_meters
		FROM conflation_runs
		ORDER BY id DESC
		LIMIT $1`

	var runs []RunSummary
	if err := r.DB.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	return runs, nil
}
