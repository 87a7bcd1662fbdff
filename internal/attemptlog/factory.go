package attemptlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"infergate/config"
	"infergate/internal/storage"
)

// Reader lists recorded calls.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}

// Result holds the attempt log and the resources it owns. Call Close on shutdown.
type Result struct {
	Logger  Writer
	Reader  Reader
	Storage storage.Storage
}

// Close flushes the logger and closes the storage connection.
func (r *Result) Close() error {
	var errs []error
	if r.Logger != nil {
		if err := r.Logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("logger close: %w", err))
		}
	}
	if r.Storage != nil {
		if err := r.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}

// New opens storage and starts the logger. A disabled attempt log returns a NoopLogger.
func New(ctx context.Context, cfg *config.Config) (*Result, error) {
	if !cfg.AttemptLog.Enabled {
		return &Result{Logger: NoopLogger{}}, nil
	}

	conn, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	store, err := NewStore(ctx, conn, cfg.AttemptLog.RetentionDays)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Result{
		Logger:  NewLogger(store, loggerConfig(cfg.AttemptLog)),
		Reader:  store,
		Storage: conn,
	}, nil
}

// StoreReader is a store that can also list what it wrote.
type StoreReader interface {
	Store
	Reader
}

// NewStore creates the store matching the storage backend.
func NewStore(ctx context.Context, conn storage.Storage, retentionDays int) (StoreReader, error) {
	switch conn.Type() {
	case storage.TypeSQLite:
		return NewSQLiteStore(conn.SQLiteDB(), retentionDays)
	case storage.TypePostgreSQL:
		return NewPostgreSQLStore(ctx, conn.PostgreSQLPool(), retentionDays)
	case storage.TypeMongoDB:
		return NewMongoDBStore(ctx, conn.MongoDatabase(), retentionDays)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", conn.Type())
	}
}

func loggerConfig(c config.AttemptLogConfig) Config {
	return Config{
		Enabled:       c.Enabled,
		BufferSize:    c.BufferSize,
		FlushInterval: time.Duration(c.FlushInterval) * time.Second,
		RetentionDays: c.RetentionDays,
	}
}
