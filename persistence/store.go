// Package persistence stores scrape results in MongoDB and keeps a local
// SQLite ledger of runs.
package persistence

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Nehilsa2/linkedin_scraper/failure"
	"github.com/Nehilsa2/linkedin_scraper/profile"
)

const (
	DefaultDBPath = "linkedin_scraper.db"
)

// Run status values
const (
	RunStatusInProgress = "in_progress"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// Run is one row of the runs table
type Run struct {
	ID           string
	Role         string
	Status       string
	Pages        int
	Records      int
	StartedAt    time.Time
	FinishedAt   *time.Time
	ErrorMessage string
}

// Issue is a recoverable problem recorded against a run
type Issue struct {
	RunID      string
	Kind       failure.Kind
	Op         string
	Message    string
	RecordedAt time.Time
}

// Store is the SQLite run ledger
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (and creates when needed) the ledger at dbPath
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "persistence: create ledger directory")
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, eris.Wrap(err, "persistence: open ledger")
	}
	// one writer, and WAL so readers never block it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "persistence: set WAL mode")
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "persistence: initialize tables")
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'in_progress',
			pages INTEGER DEFAULT 0,
			records INTEGER DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			error_message TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS run_issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			kind TEXT NOT NULL,
			op TEXT,
			message TEXT,
			recorded_at TEXT NOT NULL
		)`,

		// profiles seen per run; the same URL may repeat across pages
		`CREATE TABLE IF NOT EXISTS run_profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			profile_url TEXT NOT NULL,
			name TEXT,
			role TEXT,
			page_number INTEGER,
			enriched BOOLEAN DEFAULT FALSE,
			scraped_at TEXT NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return eris.Wrap(err, "create table")
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_issues_run ON run_issues(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_profiles_run ON run_profiles(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_profiles_url ON run_profiles(profile_url)`,
	}

	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return eris.Wrap(err, "create index")
		}
	}

	return nil
}

// Transaction executes fn within a database transaction
func (s *Store) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// StartRun inserts a new in-progress run
func (s *Store) StartRun(ctx context.Context, id, role string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, role, status, started_at) VALUES (?, ?, ?, ?)
	`, id, role, RunStatusInProgress, formatTime(startedAt))
	if err != nil {
		return eris.Wrapf(err, "persistence: start run %s", id)
	}
	return nil
}

// FinishRun records the outcome of a run. A non-nil runErr marks it failed.
func (s *Store) FinishRun(ctx context.Context, id string, pages, records int, runErr error) error {
	status, msg := RunStatusCompleted, ""
	if runErr != nil {
		status, msg = RunStatusFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, pages = ?, records = ?, finished_at = ?, error_message = ?
		WHERE id = ?
	`, status, pages, records, formatTime(time.Now()), msg, id)
	if err != nil {
		return eris.Wrapf(err, "persistence: finish run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("persistence: run %s not found", id)
	}
	return nil
}

// RecordIssue appends a recoverable failure to the run
func (s *Store) RecordIssue(ctx context.Context, runID string, issue *failure.Error) error {
	msg := ""
	if issue.Err != nil {
		msg = issue.Err.Error()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_issues (run_id, kind, op, message, recorded_at) VALUES (?, ?, ?, ?, ?)
	`, runID, string(issue.Kind), issue.Op, msg, formatTime(time.Now()))
	if err != nil {
		return eris.Wrapf(err, "persistence: record issue for run %s", runID)
	}
	return nil
}

// SaveProfiles records the run's profiles in a single transaction
func (s *Store) SaveProfiles(ctx context.Context, runID string, records []profile.Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_profiles (run_id, profile_url, name, role, page_number, enriched, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return eris.Wrap(err, "persistence: prepare profile insert")
		}
		defer stmt.Close()

		for _, r := range records {
			scrapedAt := r.ScrapedAt
			if scrapedAt.IsZero() {
				scrapedAt = time.Now()
			}
			if _, err := stmt.ExecContext(ctx, runID, r.ProfileURL, r.Name, r.Role, r.Page, r.Enrichment.OK(), formatTime(scrapedAt)); err != nil {
				return eris.Wrapf(err, "persistence: save profile %s", r.ProfileURL)
			}
		}
		return nil
	})
}

// GetRun returns the run with the given id, or nil when there is none
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, status, pages, records, started_at, finished_at, error_message
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// LastRun returns the most recently started run, or nil
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, role, status, pages, records, started_at, finished_at, error_message
		FROM runs ORDER BY started_at DESC LIMIT 1
	`)
	return scanRun(row)
}

// Issues lists the issues recorded for a run, oldest first
func (s *Store) Issues(ctx context.Context, runID string) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, op, message, recorded_at
		FROM run_issues WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "persistence: query issues")
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		var (
			issue      Issue
			kind       string
			op, msg    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&issue.RunID, &kind, &op, &msg, &recordedAt); err != nil {
			return nil, eris.Wrap(err, "persistence: scan issue")
		}
		issue.Kind = failure.Kind(kind)
		issue.Op = op.String
		issue.Message = msg.String
		issue.RecordedAt, _ = parseTime(recordedAt)
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func scanRun(row *sql.Row) (*Run, error) {
	run := &Run{}
	var (
		startedAt    string
		finishedAt   sql.NullString
		errorMessage sql.NullString
	)

	err := row.Scan(&run.ID, &run.Role, &run.Status, &run.Pages, &run.Records,
		&startedAt, &finishedAt, &errorMessage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "persistence: scan run")
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		t, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &t
	}
	run.ErrorMessage = errorMessage.String

	return run, nil
}

// timeLayout is fixed width and always UTC, so stored times sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "persistence: parse time %q", s)
	}
	return t, nil
}
