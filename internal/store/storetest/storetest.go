// Package storetest opens throwaway migrated databases for tests.
package storetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"jobsync-engine/internal/logger"
	"jobsync-engine/internal/store"
)

// PostgresEnv enables the container-backed postgres tests.
const PostgresEnv = "JOBSYNC_TEST_POSTGRES"

// Open returns a migrated sqlite database living in t.TempDir().
func Open(t *testing.T) *store.DB {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "jobsync.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(ctx, db, logger.Nop()))
	return db
}

// OpenPostgres starts a postgres container and returns a migrated handle
// on it. It needs docker, so the test is skipped unless PostgresEnv is set.
func OpenPostgres(t *testing.T) *store.DB {
	t.Helper()
	if os.Getenv(PostgresEnv) == "" {
		t.Skipf("set %s=1 to run postgres tests", PostgresEnv)
	}
	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jobsync"),
		postgres.WithUsername("jobsync"),
		postgres.WithPassword("jobsync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := store.Open(ctx, store.Config{Driver: store.DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(ctx, db, logger.Nop()))
	return db
}
