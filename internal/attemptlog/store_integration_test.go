//go:build integration

package attemptlog

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	pgPool        *pgxpool.Pool
	mongoDatabase *mongo.Database
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("infergate_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start PostgreSQL container: %v", err)
	}
	pgURL, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get PostgreSQL connection string: %v", err)
	}
	if pgPool, err = pgxpool.New(ctx, pgURL); err != nil {
		log.Fatalf("failed to create PostgreSQL pool: %v", err)
	}

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("failed to start MongoDB container: %v", err)
	}
	mongoURL, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("failed to get MongoDB connection string: %v", err)
	}
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(mongoURL))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	mongoDatabase = mongoClient.Database("infergate_test")

	code := m.Run()

	pgPool.Close()
	_ = mongoClient.Disconnect(ctx)
	_ = pgContainer.Terminate(ctx)
	_ = mongoContainer.Terminate(ctx)
	cancel()
	os.Exit(code)
}

func sampleEntries() []*Entry {
	base := time.Now().UTC().Truncate(time.Millisecond)
	return []*Entry{
		{
			ID: "0b5e2a8e-1a57-4c36-a1a4-0a1b2c3d4e01", RequestID: "r1", Timestamp: base,
			Chain: "groq", Kind: "success", Provider: "groq", Model: "llama",
			Attempts: []AttemptRecord{{Provider: "groq", Model: "llama", Kind: "success", Sent: true, DurationMs: 12}},
		},
		{
			ID: "0b5e2a8e-1a57-4c36-a1a4-0a1b2c3d4e02", RequestID: "r2", Timestamp: base.Add(time.Second),
			Chain: "together,ollama", Kind: "exhausted", Message: "all providers failed",
			Attempts: []AttemptRecord{{Provider: "together", Kind: "config_error"}},
		},
	}
}

func TestPostgreSQLStore(t *testing.T) {
	ctx := t.Context()
	store, err := NewPostgreSQLStore(ctx, pgPool, 0)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.WriteBatch(ctx, sampleEntries()))
	require.NoError(t, store.WriteBatch(ctx, sampleEntries()[:1]))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].RequestID)
	assert.Equal(t, "together,ollama", got[0].Chain)
	assert.Equal(t, []AttemptRecord{{Provider: "together", Kind: "config_error"}}, got[0].Attempts)
}

func TestMongoDBStore(t *testing.T) {
	ctx := t.Context()
	store, err := NewMongoDBStore(ctx, mongoDatabase, 30)
	require.NoError(t, err)

	require.NoError(t, store.WriteBatch(ctx, sampleEntries()))

	err = store.WriteBatch(ctx, sampleEntries()[:1])
	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.ErrorIs(t, err, ErrPartialWrite)
	assert.Equal(t, 1, partial.FailedCount)

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].RequestID)
	assert.True(t, got[1].Attempts[0].Sent)
}
