package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the history database after a mismatch.
const schemaVersion = 2

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// dashboardRecentLimit caps the per-user recent list.
const dashboardRecentLimit = 20

// HistoryEntry is one finished job as recorded for dashboards. Unlike the
// live job map, history persists across restarts.
type HistoryEntry struct {
	JobID          string    `json:"job_id"`
	User           string    `json:"user"`
	Filename       string    `json:"filename"`
	TargetLanguage string    `json:"target_language"`
	Status         Status    `json:"status"`
	LipSynced      bool      `json:"lip_synced"`
	DurationSec    float64   `json:"duration_sec"`
	Words          int       `json:"words"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Dashboard aggregates a user's history: how many videos were dubbed, how
// many words were spoken, and how much footage passed through.
type Dashboard struct {
	User         string         `json:"user"`
	TotalVideos  int            `json:"total_videos"`
	Completed    int            `json:"completed"`
	Failed       int            `json:"failed"`
	TotalWords   int            `json:"total_words"`
	TotalTimeSec float64        `json:"total_time_sec"`
	History      []HistoryEntry `json:"history"`
}

// HistoryStore persists finished jobs in SQLite.
type HistoryStore struct {
	db   *sql.DB
	path string
}

// OpenHistory initializes or connects to the history database under dir.
func OpenHistory(dir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	dbPath := filepath.Join(dir, "history.db")
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

	store := &HistoryStore{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (h *HistoryStore) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Path returns the database file location.
func (h *HistoryStore) Path() string {
	return h.path
}

func (h *HistoryStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := h.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := h.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := h.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the history database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Append records a finished job. Called exactly once per job, at terminal
// status.
func (h *HistoryStore) Append(ctx context.Context, entry HistoryEntry) error {
	lipSynced := 0
	if entry.LipSynced {
		lipSynced = 1
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO job_history (
            job_id, user, filename, target_language, status,
            lip_synced, duration_sec, words, error, created_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID,
		entry.User,
		entry.Filename,
		entry.TargetLanguage,
		string(entry.Status),
		lipSynced,
		entry.DurationSec,
		entry.Words,
		entry.Error,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Dashboard returns aggregate totals and the most recent entries for a user.
func (h *HistoryStore) Dashboard(ctx context.Context, user string) (Dashboard, error) {
	dashboard := Dashboard{User: user, History: []HistoryEntry{}}

	row := h.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(words), 0),
            COALESCE(SUM(duration_sec), 0)
        FROM job_history WHERE user = ?`,
		string(StatusCompleted), string(StatusFailed), user)
	if err := row.Scan(&dashboard.TotalVideos, &dashboard.Completed, &dashboard.Failed,
		&dashboard.TotalWords, &dashboard.TotalTimeSec); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard totals: %w", err)
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT job_id, user, filename, target_language, status,
            lip_synced, duration_sec, words, error, created_at, finished_at
        FROM job_history WHERE user = ?
        ORDER BY finished_at DESC, id DESC LIMIT ?`,
		user, dashboardRecentLimit)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard recent: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry      HistoryEntry
			status     string
			lipSynced  int
			createdAt  string
			finishedAt string
		)
		if err := rows.Scan(&entry.JobID, &entry.User, &entry.Filename,
			&entry.TargetLanguage, &status, &lipSynced, &entry.DurationSec,
			&entry.Words, &entry.Error, &createdAt, &finishedAt); err != nil {
			return Dashboard{}, fmt.Errorf("scan history row: %w", err)
		}
		entry.Status = Status(status)
		entry.LipSynced = lipSynced != 0
		if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			entry.FinishedAt = parsed
		}
		dashboard.History = append(dashboard.History, entry)
	}
	if err := rows.Err(); err != nil {
		return Dashboard{}, fmt.Errorf("iterate history rows: %w", err)
	}
	return dashboard, nil
}
