package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflation_service/internal/domain/model"
	"conflation_service/internal/domain/repository"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func sampleReport() *model.RunReport {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.RunReport{
		StartedAt:         started,
		FinishedAt:        started.Add(2 * time.Second),
		RadiusMeters:      65,
		BBox:              "-3.9,-38.7,-3.7,-38.5",
		LocalFeatures:     10,
		ReferenceFeatures: 8,
		Missing:           3,
		Incomplete:        2,
		Extra:             1,
		ReferenceToLocal:  model.MatchStats{Matched: 7, MeanDistance: 12.5},
		Files:             []model.OutputFile{{Name: "1_missing_in_osm.geojson", Path: "out/1_missing_in_osm.geojson", Features: 3}},
	}
}

func TestPostgresRunRecorderSaveRun(t *testing.T) {
	db, mock := newMockDB(t)
	report := sampleReport()

	mock.ExpectExec("INSERT INTO conflation_runs").
		WithArgs(
			report.StartedAt, report.FinishedAt, report.BBox, report.RadiusMeters,
			report.LocalFeatures, report.ReferenceFeatures, report.SkippedReference, report.EmptyReference,
			report.Missing, report.Incomplete, report.Extra,
			report.ReferenceToLocal.MeanDistance, sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repository.NewPostgresRunRecorder(db).SaveRun(context.Background(), report)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRunRecorderSaveRunError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO conflation_runs").WillReturnError(errors.New("connection reset"))

	err := repository.NewPostgresRunRecorder(db).SaveRun(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
}

func TestEnsureSchema(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS conflation_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &repository.PostgresRepository{DB: db}
	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRuns(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"id", "bbox", "missing", "incomplete", "extra", "radius_meters"}).
		AddRow(2, "b", 1, 2, 3, 65.0).
		AddRow(1, "a", 4, 5, 6, 50.0)
	mock.ExpectQuery(`(?s)SELECT id, bbox, missing, incomplete, extra, radius_meters\s+FROM conflation_runs`).
		WithArgs(5).
		WillReturnRows(rows)

	repo := &repository.PostgresRepository{DB: db}
	runs, err := repo.LatestRuns(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, []repository.RunSummary{
		{ID: 2, BBox: "b", Missing: 1, Incomplete: 2, Extra: 3, Radius: 65},
		{ID: 1, BBox: "a", Missing: 4, Incomplete: 5, Extra: 6, Radius: 50},
	}, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
