package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/boqai/boq-server/models"
)

// PostgresStore is a job store backed by PostgreSQL. The status column is
// the claim guard: transitions are a single conditional UPDATE, so the
// database serializes racing claims and exactly one wins.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresStore creates a job store on top of an existing pgx pool.
func NewPostgresStore(pool *pgxpool.Pool, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		log:  log.With().Str("component", "postgres_store").Logger(),
	}
}

// EnsureSchema creates the jobs table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS boq_jobs (
    id            UUID PRIMARY KEY,
    source_file   TEXT NOT NULL,
    status        TEXT NOT NULL,
    result_json   JSONB,
    error_message TEXT NOT NULL DEFAULT '',
    worker        TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);
`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

// Create inserts a new pending job for sourceFile.
func (s *PostgresStore) Create(ctx context.Context, sourceFile string) (*models.Job, error) {
	now := time.Now()
	job := &models.Job{
		ID:         uuid.New().String(),
		SourceFile: sourceFile,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `
INSERT INTO boq_jobs (id, source_file, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := s.pool.Exec(ctx, query, job.ID, job.SourceFile, job.Status, job.CreatedAt, job.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	s.log.Info().Str("job_id", job.ID).Str("source_file", sourceFile).Msg("job created")
	return job, nil
}

// Get fetches a job by its identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Job, error) {
	query := `
SELECT id, source_file, status, result_json, error_message, worker, created_at, updated_at, started_at, completed_at
FROM boq_jobs
WHERE id = $1;
`
	row := s.pool.QueryRow(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// List returns all jobs, optionally filtered by status.
func (s *PostgresStore) List(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	query := `
SELECT id, source_file, status, result_json, error_message, worker, created_at, updated_at, started_at, completed_at
FROM boq_jobs
WHERE ($1 = '' OR status = $1)
ORDER BY created_at;
`
	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Transition atomically moves a job to the next status. The conditional
// UPDATE only matches rows whose current status permits the step, which is
// the compare-and-swap that rejects duplicate claims.
func (s *PostgresStore) Transition(ctx context.Context, id string, next models.JobStatus, payload TransitionPayload) (*models.Job, error) {
	var from models.JobStatus
	switch next {
	case models.StatusRunning:
		from = models.StatusPending
	case models.StatusFinished, models.StatusFailed:
		from = models.StatusRunning
	default:
		return nil, models.ErrInvalidTransition
	}

	var resultJSON []byte
	if payload.Result != nil {
		data, err := json.Marshal(payload.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = data
	}

	query := `
UPDATE boq_jobs
SET status        = $3,
    updated_at    = NOW(),
    worker        = CASE WHEN $3 = 'running' THEN $4 ELSE worker END,
    started_at    = CASE WHEN $3 = 'running' THEN NOW() ELSE started_at END,
    completed_at  = CASE WHEN $3 IN ('finished', 'failed') THEN NOW() ELSE completed_at END,
    result_json   = COALESCE($5, result_json),
    error_message = CASE WHEN $3 = 'failed' THEN $6 ELSE error_message END
WHERE id = $1 AND status = $2;
`
	tag, err := s.pool.Exec(ctx, query, id, from, next, payload.Worker, resultJSON, payload.Error)
	if err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish an unknown id from a lost claim race.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidTransition
	}

	return s.Get(ctx, id)
}

// Delete removes a job record outright.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boq_jobs WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// PurgeTerminal removes finished and failed jobs older than the given age.
func (s *PostgresStore) PurgeTerminal(olderThan time.Duration) int {
	query := `
DELETE FROM boq_jobs
WHERE status IN ('finished', 'failed') AND updated_at < $1;
`
	tag, err := s.pool.Exec(context.Background(), query, time.Now().Add(-olderThan))
	if err != nil {
		s.log.Error().Err(err).Msg("failed to purge terminal jobs")
		return 0
	}
	return int(tag.RowsAffected())
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var (
		job        models.Job
		resultJSON []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.SourceFile,
		&job.Status,
		&resultJSON,
		&job.ErrorMessage,
		&job.Worker,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		var boq models.BoQ
		if err := json.Unmarshal(resultJSON, &boq); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		job.Result = &boq
	}
	return &job, nil
}
