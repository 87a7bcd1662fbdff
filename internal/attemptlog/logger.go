package attemptlog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"infergate/internal/gateway"
)

// BatchFlushThreshold is the batch size that triggers a write without waiting for the ticker.
const BatchFlushThreshold = 100

// Writer accepts entries. Both Logger and NoopLogger implement it.
type Writer interface {
	Write(entry *Entry)
	Hooks() gateway.Hooks
	Close() error
}

// Logger buffers entries in a channel and writes them in batches, either when
// a batch fills or on every flush interval.
type Logger struct {
	store  Store
	config Config
	buffer chan *Entry
	done   chan struct{}
	wg     sync.WaitGroup
	// writes tracks in-flight Write calls so Close never closes the buffer under a sender
	writes sync.WaitGroup
	closed atomic.Bool
}

// NewLogger starts the background flush loop.
func NewLogger(store Store, cfg Config) *Logger {
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}

	l := &Logger{
		store:  store,
		config: cfg,
		buffer: make(chan *Entry, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.flushLoop()
	return l
}

// Write queues an entry without blocking. Entries are dropped with a warning
// when the buffer is full or the logger is closed.
func (l *Logger) Write(entry *Entry) {
	if entry == nil || l.closed.Load() {
		return
	}

	l.writes.Add(1)
	defer l.writes.Done()

	// Close may have run between the first check and Add
	if l.closed.Load() {
		return
	}

	select {
	case l.buffer <- entry:
	default:
		slog.Warn("attempt log buffer full, dropping entry",
			"request_id", entry.RequestID,
			"kind", entry.Kind,
		)
	}
}

// Hooks returns gateway hooks that record every finished call.
func (l *Logger) Hooks() gateway.Hooks {
	return gateway.Hooks{
		OnComplete: func(_ context.Context, s gateway.CallSummary) {
			l.Write(FromSummary(s))
		},
	}
}

// Config returns the effective configuration.
func (l *Logger) Config() Config {
	return l.config
}

// Close flushes buffered entries and closes the store. It is idempotent.
func (l *Logger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	l.writes.Wait()
	close(l.done)
	l.wg.Wait()
	return l.store.Close()
}

func (l *Logger) flushLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*Entry, 0, BatchFlushThreshold)
	for {
		select {
		case entry := <-l.buffer:
			batch = append(batch, entry)
			if len(batch) >= BatchFlushThreshold {
				l.flushBatch(batch)
				batch = make([]*Entry, 0, BatchFlushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = make([]*Entry, 0, BatchFlushThreshold)
			}

		case <-l.done:
			close(l.buffer)
			for entry := range l.buffer {
				batch = append(batch, entry)
			}
			l.flushBatch(batch)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := l.store.Flush(ctx); err != nil {
				slog.Error("failed to flush attempt log store", "error", err)
			}
			cancel()
			return
		}
	}
}

func (l *Logger) flushBatch(batch []*Entry) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.store.WriteBatch(ctx, batch); err != nil {
		slog.Error("failed to write attempt log batch", "error", err, "count", len(batch))
	}
}

// NoopLogger discards entries. Used when the attempt log is disabled.
type NoopLogger struct{}

func (NoopLogger) Write(*Entry)         {}
func (NoopLogger) Hooks() gateway.Hooks { return gateway.Hooks{} }
func (NoopLogger) Close() error         { return nil }
