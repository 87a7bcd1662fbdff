package attemptlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresInsert = `
	INSERT INTO gateway_calls (id, request_id, timestamp, chain, kind, provider, model,
		status_code, category, reason, message, canceled, duration_ms, attempts)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO NOTHING`

// PostgreSQLStore writes entries to the gateway_calls table.
type PostgreSQLStore struct {
	pool          *pgxpool.Pool
	retentionDays int
	stopCleanup   chan struct{}
	closeOnce     sync.Once
}

// NewPostgreSQLStore creates the table and indexes, and starts retention
// cleanup when retentionDays is positive. The caller owns pool.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool, retentionDays int) (*PostgreSQLStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gateway_calls (
			id UUID PRIMARY KEY,
			request_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			chain TEXT NOT NULL,
			kind TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			status_code INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			canceled BOOLEAN NOT NULL DEFAULT FALSE,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			attempts JSONB
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway_calls table: %w", err)
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_timestamp ON gateway_calls(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_request_id ON gateway_calls(request_id)",
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_kind ON gateway_calls(kind)",
		"CREATE INDEX IF NOT EXISTS idx_gateway_calls_attempts_gin ON gateway_calls USING GIN (attempts)",
	} {
		if _, err := pool.Exec(ctx, idx); err != nil {
			slog.Warn("failed to create index", "error", err)
		}
	}

	s := &PostgreSQLStore{pool: pool, retentionDays: retentionDays, stopCleanup: make(chan struct{})}
	if retentionDays > 0 {
		go RunCleanupLoop(s.stopCleanup, s.cleanup)
	}
	return s, nil
}

// WriteBatch inserts all entries in one pgx batch inside a transaction.
func (s *PostgreSQLStore) WriteBatch(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(postgresInsert, e.ID, e.RequestID, e.Timestamp, e.Chain, e.Kind, e.Provider, e.Model,
			e.StatusCode, e.Category, e.Reason, e.Message, e.Canceled, e.DurationMs, marshalAttempts(e))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert %d attempt log entries: %w", len(entries), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *PostgreSQLStore) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, request_id, timestamp, chain, kind, provider, model,
			status_code, category, reason, message, canceled, duration_ms, attempts
		FROM gateway_calls ORDER BY timestamp DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt log: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e        Entry
			attempts []byte
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Timestamp, &e.Chain, &e.Kind, &e.Provider, &e.Model,
			&e.StatusCode, &e.Category, &e.Reason, &e.Message, &e.Canceled, &e.DurationMs, &attempts); err != nil {
			return nil, fmt.Errorf("failed to scan attempt log row: %w", err)
		}
		if len(attempts) > 0 {
			if err := json.Unmarshal(attempts, &e.Attempts); err != nil {
				slog.Warn("failed to decode attempts", "error", err, "id", e.ID)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Flush is a no-op; writes are synchronous.
func (s *PostgreSQLStore) Flush(context.Context) error { return nil }

// Close stops the cleanup loop. The pool is owned by the storage layer.
func (s *PostgreSQLStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCleanup) })
	return nil
}

func (s *PostgreSQLStore) cleanup() {
	if s.retentionDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	result, err := s.pool.Exec(ctx, "DELETE FROM gateway_calls WHERE timestamp < $1", cutoff)
	if err != nil {
		slog.Error("failed to clean up old attempt log entries", "error", err)
		return
	}
	if result.RowsAffected() > 0 {
		slog.Info("cleaned up old attempt log entries", "deleted", result.RowsAffected())
	}
}
