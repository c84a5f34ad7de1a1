package orchestrator

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run statuses recorded in the history table.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// RunRecord is one orchestration run's history row.
type RunRecord struct {
	ID           string
	ChatID       string
	Task         string
	Status       string
	Workers      int
	TotalCostUSD float64
	NeedsRestart bool
	StartedAt    time.Time
	UpdatedAt    time.Time
}

// RunStore persists orchestration run history in its own SQLite
// database, separate from the chat state store.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens (creating if needed) the run-history database.
func OpenRunStore(path string) (*RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create runs directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open runs database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		chat_id TEXT NOT NULL,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		workers INTEGER NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		needs_restart INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	return &RunStore{db: db}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Start records a run entering the running state.
func (s *RunStore) Start(runID, chatID, task string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO runs (id, chat_id, task, status, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, chatID, task, RunStatusRunning, now, now)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// Finish records a run's terminal state.
func (s *RunStore) Finish(runID, status string, workers int, totalCost float64, needsRestart bool) error {
	restart := 0
	if needsRestart {
		restart = 1
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, workers = ?, total_cost = ?, needs_restart = ?, updated_at = ?
		 WHERE id = ?`,
		status, workers, totalCost, restart, time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// Get returns one run by id.
func (s *RunStore) Get(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, chat_id, task, status, workers, total_cost, needs_restart, started_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	rec, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run %q", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return rec, nil
}

// Recent returns the latest runs, newest first.
func (s *RunStore) Recent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, chat_id, task, status, workers, total_cost, needs_restart, started_at, updated_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// MarkStaleRunning flips any run still marked running to canceled,
// used at startup to clean up after a crashed process.
func (s *RunStore) MarkStaleRunning() (int64, error) {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, updated_at = ? WHERE status = ?`,
		RunStatusCanceled, time.Now().UTC().Format(time.RFC3339), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("mark stale runs: %w", err)
	}
	return res.RowsAffected()
}

// scanRun decodes one runs row via the given scan function.
func scanRun(scan func(dest ...any) error) (*RunRecord, error) {
	var rec RunRecord
	var restart int
	var started, updated string
	err := scan(&rec.ID, &rec.ChatID, &rec.Task, &rec.Status, &rec.Workers,
		&rec.TotalCostUSD, &restart, &started, &updated)
	if err != nil {
		return nil, err
	}
	rec.NeedsRestart = restart != 0
	if t, err := time.Parse(time.RFC3339, started); err == nil {
		rec.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		rec.UpdatedAt = t
	}
	return &rec, nil
}
