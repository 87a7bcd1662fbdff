// Package attemptlog persists one record per gateway call, including the
// per-provider attempt trail, to the configured storage backend.
package attemptlog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"infergate/internal/core"
	"infergate/internal/gateway"
)

// Store writes entries to a backend. Implementations must be safe for concurrent use.
type Store interface {
	WriteBatch(ctx context.Context, entries []*Entry) error
	// Flush forces pending writes to complete. Called during shutdown.
	Flush(ctx context.Context) error
	Close() error
}

// Entry is a finished gateway call.
type Entry struct {
	ID         string          `json:"id" bson:"_id"`
	RequestID  string          `json:"request_id" bson:"request_id"`
	Timestamp  time.Time       `json:"timestamp" bson:"timestamp"`
	Chain      string          `json:"chain" bson:"chain"`
	Kind       string          `json:"kind" bson:"kind"`
	Provider   string          `json:"provider,omitempty" bson:"provider,omitempty"`
	Model      string          `json:"model,omitempty" bson:"model,omitempty"`
	StatusCode int             `json:"status_code,omitempty" bson:"status_code,omitempty"`
	Category   string          `json:"category,omitempty" bson:"category,omitempty"`
	Reason     string          `json:"reason,omitempty" bson:"reason,omitempty"`
	Message    string          `json:"message,omitempty" bson:"message,omitempty"`
	Canceled   bool            `json:"canceled" bson:"canceled"`
	DurationMs int64           `json:"duration_ms" bson:"duration_ms"`
	Attempts   []AttemptRecord `json:"attempts" bson:"attempts"`
}

// AttemptRecord is one provider's part in a call.
type AttemptRecord struct {
	Provider   string `json:"provider" bson:"provider"`
	Model      string `json:"model,omitempty" bson:"model,omitempty"`
	Kind       string `json:"kind" bson:"kind"`
	Sent       bool   `json:"sent" bson:"sent"`
	DurationMs int64  `json:"duration_ms" bson:"duration_ms"`
}

// Config holds attempt log settings.
type Config struct {
	Enabled       bool
	BufferSize    int
	FlushInterval time.Duration
	// RetentionDays is how long entries are kept; 0 keeps them forever
	RetentionDays int
}

// DefaultConfig returns the buffer and retention defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		RetentionDays: 30,
	}
}

// FromSummary converts a finished call into an entry with a fresh ID.
// The completion text is never recorded.
func FromSummary(s gateway.CallSummary) *Entry {
	r := s.Result
	e := &Entry{
		ID:         uuid.NewString(),
		RequestID:  s.RequestID,
		Timestamp:  s.Started.UTC(),
		Chain:      strings.Join(s.Chain, ","),
		Kind:       string(r.Kind),
		Provider:   r.Provider,
		Model:      r.Model,
		StatusCode: r.StatusCode,
		Category:   string(r.Category),
		Reason:     string(r.Reason),
		Canceled:   r.Canceled,
		DurationMs: s.Duration.Milliseconds(),
		Attempts:   make([]AttemptRecord, 0, len(s.Attempts)),
	}
	if r.Kind != core.KindSuccess {
		e.Message = r.String()
	}
	for _, a := range s.Attempts {
		e.Attempts = append(e.Attempts, AttemptRecord{
			Provider:   a.Provider,
			Model:      a.Model,
			Kind:       string(a.Kind),
			Sent:       a.Sent,
			DurationMs: a.Duration.Milliseconds(),
		})
	}
	return e
}
