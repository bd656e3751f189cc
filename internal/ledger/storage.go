// Package ledger keeps an audit trail of job outcomes in PostgreSQL.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nf-osi/synapse-jobs/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS job_runs (
		id            BIGSERIAL PRIMARY KEY,
		run_id        UUID        NOT NULL,
		job           TEXT        NOT NULL,
		target        TEXT        NOT NULL,
		success       BOOLEAN     NOT NULL,
		dry_run       BOOLEAN     NOT NULL DEFAULT FALSE,
		version       BIGINT,
		updated       INTEGER     NOT NULL DEFAULT 0,
		candidates    INTEGER     NOT NULL DEFAULT 0,
		error_message TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ NOT NULL
	)
`

// runRow is one job_runs row
type runRow struct {
	RunID        string         `db:"run_id"`
	Job          string         `db:"job"`
	Target       string         `db:"target"`
	Success      bool           `db:"success"`
	DryRun       bool           `db:"dry_run"`
	Version      sql.NullInt64  `db:"version"`
	Updated      int            `db:"updated"`
	Candidates   int            `db:"candidates"`
	ErrorMessage sql.NullString `db:"error_message"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   time.Time      `db:"finished_at"`
}

func newRunRow(run *domain.RunResult, o domain.Outcome) runRow {
	row := runRow{
		RunID:      run.RunID,
		Job:        o.Job,
		Target:     o.Target,
		Success:    o.Success,
		DryRun:     o.DryRun,
		Updated:    o.Updated,
		Candidates: o.Candidates,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if o.Version > 0 {
		row.Version = sql.NullInt64{Int64: o.Version, Valid: true}
	}
	if o.Err != nil {
		row.ErrorMessage = sql.NullString{String: o.Err.Error(), Valid: true}
	}
	return row
}

// Storage writes job outcomes to the job_runs table
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the job_runs table if it does not exist
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create job_runs table: %w", err)
	}
	return nil
}

// Record inserts one outcome of a run
func (s *Storage) Record(ctx context.Context, run *domain.RunResult, outcome domain.Outcome) error {
	query := `
		INSERT INTO job_runs (
			run_id, job, target, success, dry_run, version,
			updated, candidates, error_message, started_at, finished_at
		) VALUES (
			:run_id, :job, :target, :success, :dry_run, :version,
			:updated, :candidates, :error_message, :started_at, :finished_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, newRunRow(run, outcome)); err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}

	s.logger.Debug("Job outcome recorded",
		slog.String("run_id", run.RunID),
		slog.String("target", outcome.Target),
		slog.Bool("success", outcome.Success),
	)

	return nil
}
