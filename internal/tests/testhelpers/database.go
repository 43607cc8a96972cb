// Package testhelpers starts throwaway dependencies for integration tests.
package testhelpers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const postgresImage = "postgres:16-alpine"

// TestDatabase is a postgres container with the documents schema applied.
type TestDatabase struct {
	Container *tcpostgres.PostgresContainer
	Store     *postgres.Store
	DSN       string
}

// SetupTestDatabase starts a container and registers its teardown on t.
// The store pool is closed before the container is terminated.
func SetupTestDatabase(t testing.TB) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	c, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := postgres.New(pool, logger)
	t.Cleanup(store.Close)

	require.NoError(t, store.EnsureSchema(ctx))

	return &TestDatabase{Container: c, Store: store, DSN: dsn}
}

func (td *TestDatabase) CleanTables(t testing.TB) {
	t.Helper()
	_, err := td.Store.Pool.Exec(context.Background(), `TRUNCATE documents`)
	require.NoError(t, err)
}
