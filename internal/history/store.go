// Package history persists run records to SQLite so past sweeps can be
// reviewed. The store is purely observational: stage idempotency is decided
// by artifact presence on disk, never by anything recorded here.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lectern/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the database on mismatch.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Run summarizes one recorded tree walk.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Partial    int
	Failed     int
}

// UnitRecord is one unit's recorded outcome within a run.
type UnitRecord struct {
	RunID        string
	Dir          string
	Prefix       string
	Kind         string
	Outcome      string
	FailedStage  string
	Error        string
	RenderEngine string
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun records the beginning of a tree walk.
func (s *Store) StartRun(ctx context.Context, runID, root string) error {
	if runID == "" {
		return errors.New("history: run id required")
	}
	return s.execWithoutResultRetry(ctx,
		"INSERT INTO runs (id, root, started_at) VALUES (?, ?, ?)",
		runID, root, time.Now().UTC().Format(time.RFC3339Nano))
}

// FinishRun stamps the run's end time and outcome counts.
func (s *Store) FinishRun(ctx context.Context, runID string, succeeded, partial, failed int) error {
	return s.execWithoutResultRetry(ctx,
		"UPDATE runs SET finished_at = ?, succeeded = ?, partial = ?, failed = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), succeeded, partial, failed, runID)
}

// RecordUnit appends one unit outcome to the run.
func (s *Store) RecordUnit(ctx context.Context, record UnitRecord) error {
	if record.RunID == "" {
		return errors.New("history: run id required")
	}
	return s.execWithoutResultRetry(ctx,
		`INSERT INTO units (run_id, dir, prefix, kind, outcome, failed_stage, error, render_engine, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID, record.Dir, record.Prefix, record.Kind, record.Outcome,
		record.FailedStage, record.Error, record.RenderEngine, time.Now().UTC().Format(time.RFC3339Nano))
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, started_at, COALESCE(finished_at, started_at), succeeded, partial, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedRaw, finishedRaw string
		if err := rows.Scan(&run.ID, &run.Root, &startedRaw, &finishedRaw,
			&run.Succeeded, &run.Partial, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTimeString(startedRaw); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = parseTimeString(finishedRaw); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// UnitsForRun returns every unit outcome recorded for a run, in insertion
// order.
func (s *Store) UnitsForRun(ctx context.Context, runID string) ([]UnitRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, dir, prefix, kind, outcome, failed_stage, error, render_engine
		 FROM units WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var records []UnitRecord
	for rows.Next() {
		var record UnitRecord
		if err := rows.Scan(&record.RunID, &record.Dir, &record.Prefix, &record.Kind,
			&record.Outcome, &record.FailedStage, &record.Error, &record.RenderEngine); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Clear removes all recorded runs and units.
func (s *Store) Clear(ctx context.Context) error {
	return s.execWithoutResultRetry(ctx, "DELETE FROM runs")
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'lectern history clear' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
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

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
