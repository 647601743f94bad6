// Package history provides a SQLite-backed record of past training runs:
// one row per run plus its per-increment metrics. It stores metrics only,
// never value functions or policies.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("history store is closed")

	// ErrStoreInitFailed indicates the store could not be opened.
	ErrStoreInitFailed = errors.New("history store initialization failed")
)

// Run is one recorded training run.
type Run struct {
	ID          string  `json:"id"`
	Algorithm   string  `json:"algorithm"`
	Environment string  `json:"environment"`
	State       string  `json:"state"`
	Units       int     `json:"units"`
	FinalMetric float64 `json:"finalMetric"`
	StartedAt   int64   `json:"startedAt"`
	FinishedAt  int64   `json:"finishedAt,omitempty"`
}

// Store records training runs in a SQLite database.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// Open opens (and if needed creates) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create directory: %v", ErrStoreInitFailed, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreInitFailed, err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			algorithm TEXT NOT NULL,
			environment TEXT NOT NULL,
			state TEXT NOT NULL,
			units INTEGER NOT NULL DEFAULT 0,
			final_metric REAL NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL,
			finished_at INTEGER
		);

		CREATE TABLE IF NOT EXISTS run_metrics (
			run_id TEXT NOT NULL,
			unit INTEGER NOT NULL,
			metric REAL NOT NULL,
			PRIMARY KEY (run_id, unit)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: failed to create schema: %v", ErrStoreInitFailed, err)
	}
	return nil
}

// RecordStart inserts a run in its starting state.
func (s *Store) RecordStart(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, algorithm, environment, state, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Algorithm, run.Environment, run.State, run.StartedAt)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// RecordMetric appends one per-increment metric for a run.
func (s *Store) RecordMetric(ctx context.Context, runID string, unit int, metric float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO run_metrics (run_id, unit, metric)
		VALUES (?, ?, ?)
	`, runID, unit, metric)
	if err != nil {
		return fmt.Errorf("record run metric: %w", err)
	}
	return nil
}

// RecordFinish marks a run terminal with its final state and metric.
func (s *Store) RecordFinish(ctx context.Context, runID, state string, units int, finalMetric float64, finishedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET state = ?, units = ?, final_metric = ?, finished_at = ?
		WHERE id = ?
	`, state, units, finalMetric, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first, at most limit entries
// (0 for all).
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, algorithm, environment, state, units, final_metric,
		       started_at, COALESCE(finished_at, 0)
		FROM runs ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Algorithm, &run.Environment, &run.State,
			&run.Units, &run.FinalMetric, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Metrics returns a run's per-increment metrics in unit order.
func (s *Store) Metrics(ctx context.Context, runID string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT metric FROM run_metrics WHERE run_id = ? ORDER BY unit
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run metrics: %w", err)
	}
	defer rows.Close()

	var metrics []float64
	for rows.Next() {
		var metric float64
		if err := rows.Scan(&metric); err != nil {
			return nil, fmt.Errorf("scan run metric: %w", err)
		}
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
