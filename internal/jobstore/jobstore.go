// Package jobstore persists a history of job runs (fingerprint/graph/chain
// find/assemble invocations) to PostgreSQL. This is NOT a clip metadata
// store — clip identity and features live in internal/store's JSON cache;
// jobstore only records what operations ran, when, and with what result, so
// an operator can audit or replay a corpus run. Adapted from the teacher's
// internal/storage/storage_manager.go: same database/sql + lib/pq driver,
// same connection-pool tuning, schema trimmed to one table.
package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store records job-run history in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to postgresURL and ensures the schema exists.
func Open(postgresURL string) (*Store, error) {
	db, err := sql.Open("postgres", postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE SCHEMA IF NOT EXISTS videochain;

	CREATE TABLE IF NOT EXISTS videochain.job_runs (
		run_id       VARCHAR(255) PRIMARY KEY,
		operation    VARCHAR(50) NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ,
		status       VARCHAR(20) NOT NULL DEFAULT 'running',
		detail       TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_job_runs_operation ON videochain.job_runs(operation);
	CREATE INDEX IF NOT EXISTS idx_job_runs_started_at ON videochain.job_runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Operation names recorded in job_runs.operation.
const (
	OpFingerprint = "fingerprint"
	OpBuildGraph  = "build_graph"
	OpFindChains  = "find_chains"
	OpAssemble    = "assemble"
)

// StartRun records a new in-progress run under the caller-supplied runID.
func (s *Store) StartRun(ctx context.Context, runID, operation, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videochain.job_runs (run_id, operation, started_at, status, detail) VALUES ($1, $2, $3, 'running', $4)`,
		runID, operation, time.Now(), detail,
	)
	return err
}

// FinishRun marks a run complete, successfully or not.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status := "completed"
	var errMsg sql.NullString
	if runErr != nil {
		status = "failed"
		errMsg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE videochain.job_runs SET finished_at = $1, status = $2, error_message = $3 WHERE run_id = $4`,
		time.Now(), status, errMsg, runID,
	)
	return err
}

// JobRun is one row of job-run history.
type JobRun struct {
	RunID        string
	Operation    string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	Detail       string
	ErrorMessage sql.NullString
}

// RecentRuns returns the most recent limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]JobRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, operation, started_at, finished_at, status, detail, error_message
		 FROM videochain.job_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []JobRun
	for rows.Next() {
		var r JobRun
		if err := rows.Scan(&r.RunID, &r.Operation, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Detail, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the underlying database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
