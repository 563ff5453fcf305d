package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"cv-screener/internal/logging"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS screening_runs (
    id              UUID PRIMARY KEY,
    session_id      TEXT NOT NULL,
    job_description TEXT NOT NULL,
    processed       INTEGER NOT NULL,
    skipped         INTEGER NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS screening_results (
    run_id         UUID NOT NULL REFERENCES screening_runs(id) ON DELETE CASCADE,
    position       INTEGER NOT NULL,
    candidate      TEXT NOT NULL,
    score          INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
    matched        TEXT[] NOT NULL,
    missing        TEXT[] NOT NULL,
    recommendation TEXT NOT NULL,
    shortlisted    BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_screening_runs_created_at ON screening_runs (created_at DESC);
`

type DB struct {
	connection *sql.DB
	logger     *zap.Logger
}

func NewDB(ctx context.Context, dataSourceName string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{connection: db, logger: logging.OrNop(logger)}, nil
}

func (db *DB) Close() {
	if err := db.connection.Close(); err != nil {
		db.logger.Error("closing the database connection", zap.Error(err))
	}
}

// Migrate creates the archive tables when they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.connection.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// SaveRun stores a run and its results in one transaction. A zero run ID is
// replaced with a new one.
func (db *DB) SaveRun(ctx context.Context, run *Run, results []RunResult) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := db.connection.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO screening_runs (id, session_id, job_description, processed, skipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.SessionID, run.JobDescription, run.Processed, run.Skipped, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO screening_results (run_id, position, candidate, score, matched, missing, recommendation, shortlisted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			run.ID, r.Position, r.Candidate, r.Score,
			pq.Array(nonNil(r.Matched)), pq.Array(nonNil(r.Missing)),
			r.Recommendation, r.Shortlisted,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result %d: %w", r.Position, err)
		}
	}

	return tx.Commit()
}

// SetShortlisted updates every result of the run with that candidate name.
func (db *DB) SetShortlisted(ctx context.Context, runID uuid.UUID, candidate string, shortlisted bool) error {
	res, err := db.connection.ExecContext(ctx,
		`UPDATE screening_results SET shortlisted = $3 WHERE run_id = $1 AND candidate = $2`,
		runID, candidate, shortlisted,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.connection.QueryContext(ctx, `
		SELECT id, session_id, job_description, processed, skipped, created_at
		FROM screening_runs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SessionID, &r.JobDescription, &r.Processed, &r.Skipped, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var r Run
	err := db.connection.QueryRowContext(ctx, `
		SELECT id, session_id, job_description, processed, skipped, created_at
		FROM screening_runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.SessionID, &r.JobDescription, &r.Processed, &r.Skipped, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunResults returns the results of a run in processing order.
func (db *DB) GetRunResults(ctx context.Context, runID uuid.UUID) ([]RunResult, error) {
	rows, err := db.connection.QueryContext(ctx, `
		SELECT position, candidate, score, matched, missing, recommendation, shortlisted
		FROM screening_results
		WHERE run_id = $1
		ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		var r RunResult
		if err := rows.Scan(&r.Position, &r.Candidate, &r.Score,
			pq.Array(&r.Matched), pq.Array(&r.Missing), &r.Recommendation, &r.Shortlisted); err != nil {
			return nil, err
		}
		r.Matched = nonNil(r.Matched)
		r.Missing = nonNil(r.Missing)
		results = append(results, r)
	}
	return results, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
