package attemptlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SQLite binds at most 999 parameters per statement.
const (
	maxSQLiteParams    = 999
	columnsPerEntry    = 14
	maxEntriesPerBatch = maxSQLiteParams / columnsPerEntry
)

// sqliteTimeFormat is fixed width so timestamps sort lexically.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

const sqliteColumns = `id, request_id, timestamp, chain, kind, provider, model,
	status_code, category, reason, message, canceled, duration_ms, attempts`

// SQLiteStore writes entries to the gateway_calls table.
type SQLiteStore struct {
	db            *sql.DB
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewSQLiteStore creates the table and indexes, and starts retention cleanup
// when retentionDays is positive. The caller owns db.
func NewSQLiteStore(db *sql.DB, retentionDays int) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS gateway_calls (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			chain TEXT NOT NULL,
			kind TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			canceled INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			attempts JSON
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_calls table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_timestamp ON gateway_calls(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_request_id ON gateway_calls(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_kind ON gateway_calls(kind)",
	} {
		if _, err := db.Exec(idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	s := &SQLiteStore{db: db, retentionDays: retentionDays, stopCleanup: make(chan struct{})}
	if retentionDays > 0 {
		go RunCleanupLoop(s.stopCleanup, s.cleanup)
	}
	return s, nil
}

// WriteBatch inserts entries in chunks that fit the parameter limit.
func (s *SQLiteStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	for i := 0; i < len(entries); i += maxEntriesPerBatch {
		chunk := entries[i:min(i+maxEntriesPerBatch, len(entries))]

		placeholders := make([]string, len(chunk))
		values := make([]any, 0, len(chunk)*columnsPerEntry)
		for j, e := range chunk {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
			values = append(values,
				e.ID,
				e.RequestID,
				e.Timestamp.UTC().Format(sqliteTimeFormat),
				e.Chain,
				e.Kind,
				e.Provider,
				e.Model,
				e.StatusCode,
				e.Category,
				e.Reason,
				e.Message,
				e.Canceled,
				e.DurationMs,
				string(marshalAttempts(e)),
			)
		}

		query := `INSERT OR IGNORE INTO gateway_calls (` + sqliteColumns + `) VALUES ` + strings.Join(placeholders, ",")
		if _, err := s.db.ExecContext(ctx, query, values...); err != nil {
			return fmt.Errorf("failed to insert attempt log batch %d: %w", i/maxEntriesPerBatch, err)
		}
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM gateway_calls ORDER BY timestamp DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt log: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e        Entry
			ts       string
			attempts sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &ts, &e.Chain, &e.Kind, &e.Provider, &e.Model,
			&e.StatusCode, &e.Category, &e.Reason, &e.Message, &e.Canceled, &e.DurationMs, &attempts); err != nil {
			return nil, fmt.Errorf("failed to scan attempt log row: %w", err)
		}
		if e.Timestamp, err = time.Parse(sqliteTimeFormat, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		if attempts.Valid && attempts.String != "" {
			if err := json.Unmarshal([]byte(attempts.String), &e.Attempts); err != nil {
				slog.Warn("failed to decode attempts", "error", err, "id", e.ID)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Flush is a no-op; writes are synchronous.
func (s *SQLiteStore) Flush(context.Context) error { return nil }

// Close stops the cleanup loop. The database is owned by the storage layer.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *SQLiteStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(sqliteTimeFormat)

	result, err := s.db.Exec("DELETE FROM gateway_calls WHERE timestamp < ?", cutoff)
	if err != nil {
		slog.Error("failed to clean up old attempt log entries", "error", err)
		return
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		slog.Info("cleaned up old attempt log entries", "deleted", n)
	}
}

func marshalAttempts(e *Entry) []byte {
	if e.Attempts == nil {
		return []byte("[]")
	}
	data, err := json.Marshal(e.Attempts)
	if err != nil {
		slog.Warn("failed to marshal attempts", "error", err, "id", e.ID)
		return []byte("[]")
	}
	return data
}

// MaxRecent caps Recent queries.
const MaxRecent = 500

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxRecent {
		return MaxRecent
	}
	return limit
}
