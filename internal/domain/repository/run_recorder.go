package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"conflation_service/internal/core"
	"conflation_service/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

var _ core.RunRecorder = (*PostgresRunRecorder)(nil)

type PostgresRunRecorder struct {
	db *sqlx.DB
}

func NewPostgresRunRecorder(db *sqlx.DB) *PostgresRunRecorder {
	return &PostgresRunRecorder{db: db}
}

func (r *PostgresRunRecorder) SaveRun(ctx context.Context, report *model.RunReport) error {
	const query = `
		INSERT INTO conflation_runs (
			started_at, finished_at, bbox, radius_meters,
			local_features, reference_features, skipped_reference, empty_reference,
			missing, incomplete, extra,
			mean_match_distance, files
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	files, err := json.Marshal(report.Files)
	if err != nil {
		return fmt.Errorf("failed to marshal files: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		report.StartedAt, report.FinishedAt, report.BBox, report.RadiusMeters,
		report.LocalFeatures, report.ReferenceFeatures, report.SkippedReference, report.EmptyReference,
		report.Missing, report.Incomplete, report.Extra,
		report.ReferenceToLocal.MeanDistance, files,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}
