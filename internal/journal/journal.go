// Package journal persists a history of export runs in SQLite so users can
// audit what was exported, when, and with how many skips. The journal is
// bookkeeping, not a source of truth: deleting the database only loses
// history, never data.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS export_runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL,
	records INTEGER NOT NULL DEFAULT 0,
	sites INTEGER NOT NULL DEFAULT 0,
	skipped_records INTEGER NOT NULL DEFAULT 0,
	skipped_features INTEGER NOT NULL DEFAULT 0,
	invalid_records INTEGER NOT NULL DEFAULT 0,
	tabular_path TEXT NOT NULL DEFAULT '',
	shapefile_path TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_export_runs_started ON export_runs(started_at DESC);
`

// Status labels one export run's outcome.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	// StatusPartial marks a run whose tabular export succeeded but whose
	// geospatial step degraded; the note carries the reason.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Run is one journal row.
type Run struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	Status          Status
	Records         int
	Sites           int
	SkippedRecords  int
	SkippedFeatures int
	InvalidRecords  int
	TabularPath     string
	ShapefilePath   string
	Note            string
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode   = 5
	busyAttempts     = 5
	busyInitialDelay = 10 * time.Millisecond
	busyMaxDelay     = 200 * time.Millisecond
)

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records the start of an export run and returns its id.
func (s *Store) Begin(ctx context.Context) (string, error) {
	id := uuid.NewString()
	err := s.execRetry(ctx,
		`INSERT INTO export_runs (id, started_at, status) VALUES (?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("begin export run: %w", err)
	}
	return id, nil
}

// Finish stamps the run's final state and counters.
func (s *Store) Finish(ctx context.Context, run Run) error {
	err := s.execRetry(ctx,
		`UPDATE export_runs
		 SET finished_at = ?, status = ?, records = ?, sites = ?,
		     skipped_records = ?, skipped_features = ?, invalid_records = ?,
		     tabular_path = ?, shapefile_path = ?, note = ?
		 WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), run.Status, run.Records, run.Sites,
		run.SkippedRecords, run.SkippedFeatures, run.InvalidRecords,
		run.TabularPath, run.ShapefilePath, run.Note, run.ID)
	if err != nil {
		return fmt.Errorf("finish export run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, records, sites,
		        skipped_records, skipped_features, invalid_records,
		        tabular_path, shapefile_path, note
		 FROM export_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Get fetches one run by id. Returns sql.ErrNoRows when absent.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, records, sites,
		        skipped_records, skipped_features, invalid_records,
		        tabular_path, shapefile_path, note
		 FROM export_runs WHERE id = ?`, id)
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		status   string
	)
	err := row.Scan(&run.ID, &started, &finished, &status, &run.Records, &run.Sites,
		&run.SkippedRecords, &run.SkippedFeatures, &run.InvalidRecords,
		&run.TabularPath, &run.ShapefilePath, &run.Note)
	if err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	if t, err := time.Parse(time.RFC3339, started); err == nil {
		run.StartedAt = t
	}
	if finished.Valid {
		if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
			run.FinishedAt = t
		}
	}
	return run, nil
}

func (s *Store) execRetry(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyInitialDelay
	var lastErr error
	for attempt := 0; attempt < busyAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyMaxDelay {
			delay = next
		}
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
