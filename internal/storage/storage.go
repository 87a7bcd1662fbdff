// Package storage opens the database that backs the attempt log.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"infergate/config"
)

// Backend names accepted in storage.type.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

// DefaultDatabase is the MongoDB database used when none is configured.
const DefaultDatabase = "infergate"

// Storage is an open database connection. Exactly one accessor returns a
// non-nil handle, matching Type. Implementations are safe for concurrent use.
type Storage interface {
	Type() string
	SQLiteDB() *sql.DB
	PostgreSQLPool() *pgxpool.Pool
	MongoDatabase() *mongo.Database
	Close() error
}

// New opens the backend selected by cfg.Type and verifies it is reachable.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite, "":
		return NewSQLite(cfg.SQLite)
	case TypePostgreSQL:
		return NewPostgreSQL(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return NewMongoDB(ctx, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown storage type: %s (valid: sqlite, postgresql, mongodb)", cfg.Type)
	}
}

// none is embedded by backends to satisfy the accessors they do not serve.
type none struct{}

func (none) SQLiteDB() *sql.DB              { return nil }
func (none) PostgreSQLPool() *pgxpool.Pool  { return nil }
func (none) MongoDatabase() *mongo.Database { return nil }
