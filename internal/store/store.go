// Package store persists batch run history to sqlite so past reports stay
// queryable after their JSON files are overwritten.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gauntlet-run/gauntlet/internal/tester"
)

// Store wraps the sqlite connection.
type Store struct {
	conn *sql.DB
}

// Open opens (and if needed creates) the database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP NOT NULL,
		total INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		elapsed_seconds REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS test_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		test_id TEXT NOT NULL,
		title TEXT,
		verdict TEXT NOT NULL,
		reproducible BOOLEAN,
		screenshot_path TEXT,
		dom_path TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_test_results_run ON test_results(run_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID             int64     `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	Total          int       `json:"total"`
	Passed         int       `json:"passed"`
	Failed         int       `json:"failed"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// RecordRun stores a finished report and its per-test results, returning
// the run row id.
func (s *Store) RecordRun(startedAt time.Time, report *tester.Report) (int64, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, total, passed, failed, elapsed_seconds) VALUES (?, ?, ?, ?, ?)`,
		startedAt, report.Summary.Total, report.Summary.Passed, report.Summary.Failed, report.Summary.ElapsedSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO test_results (run_id, test_id, title, verdict, reproducible, screenshot_path, dom_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range report.Tests {
		var reproducible interface{}
		if t.Analysis != nil {
			reproducible = t.Analysis.Reproducible
		}
		if _, err := stmt.Exec(runID, t.ID, t.Meta.Title, string(t.Verdict), reproducible, t.Artifacts.Screenshot, t.Artifacts.DOM); err != nil {
			return 0, fmt.Errorf("failed to insert result for test %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.conn.Query(
		`SELECT id, started_at, total, passed, failed, elapsed_seconds FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Total, &r.Passed, &r.Failed, &r.ElapsedSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
