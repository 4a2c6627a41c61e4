package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/uscchron/chronicle/internal/config"
)

// SetupTestContainer starts an ephemeral Postgres container and returns an
// opened, migrated Database plus a teardown func. Exported so packages built
// on top of the store (diff, checkpoint) can run the same integration-style
// tests against a real database instead of mocking the store.
func SetupTestContainer(t *testing.T) (*Database, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("chronicle_test"),
		postgres.WithUsername("chronicle"),
		postgres.WithPassword("chronicle"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := Open(ctx, &config.DatabaseConfig{
		ConnectionString: connStr,
		MaxConnections:   5,
		ConnectTimeout:   10 * time.Second,
		MigrationsPath:   fmt.Sprintf("file://%s", migrationsDir()),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.MigrateToLatest(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	teardown := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return db, teardown
}

// migrationsDir resolves to this package's migrations directory by source
// file location rather than the test binary's working directory, so callers
// outside this package (diff, checkpoint) can reuse SetupTestContainer too.
func migrationsDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "migrations")
}
