package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/uscchron/chronicle/internal/config"
)

// Database wraps a pgx connection pool and the schema migrations that back
// the revision graph and section snapshot store (C4/C5).
type Database struct {
	pool   *pgxpool.Pool
	config *config.DatabaseConfig
}

// Open connects to Postgres, validating reachability before returning.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{pool: pool, config: cfg}, nil
}

// Close closes the connection pool.
func (db *Database) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies database connectivity.
func (db *Database) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// MigrateToLatest applies every pending migration under the configured
// migrations path (the code_revision/section_snapshot/compaction_snapshot/
// outbox_event schema, spec.md §6).
func (db *Database) MigrateToLatest(ctx context.Context) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	migrationDB, err := sql.Open("postgres", db.config.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(db.config.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// Pool returns the underlying connection pool for callers that need raw
// query access (e.g. the snapshot store).
func (db *Database) Pool() *pgxpool.Pool {
	return db.pool
}

// HealthCheck performs a liveness check beyond a bare ping.
func (db *Database) HealthCheck(ctx context.Context) error {
	stats := db.pool.Stat()
	if stats.TotalConns() == 0 {
		return fmt.Errorf("no database connections available")
	}

	var result int
	if err := db.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to execute test query: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("unexpected test query result: %d", result)
	}
	return nil
}

// Stats reports connection pool statistics.
type Stats struct {
	TotalConnections     int           `json:"total_connections"`
	IdleConnections      int           `json:"idle_connections"`
	AcquiredConnections  int           `json:"acquired_connections"`
	MaxConnections       int           `json:"max_connections"`
	AcquireCount         int64         `json:"acquire_count"`
	AcquireDuration      time.Duration `json:"acquire_duration"`
	EmptyAcquireCount    int64         `json:"empty_acquire_count"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`
}

func (db *Database) Stats() Stats {
	s := db.pool.Stat()
	return Stats{
		TotalConnections:     int(s.TotalConns()),
		IdleConnections:      int(s.IdleConns()),
		AcquiredConnections:  int(s.AcquiredConns()),
		MaxConnections:       int(db.config.MaxConnections),
		AcquireCount:         s.AcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
	}
}

// BeginTx starts a transaction at the default (read committed) isolation
// level.
func (db *Database) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

// BeginTxSerializable starts a serializable transaction, used by the
// revision builder (C7) when allocating sequence numbers to avoid two
// concurrent ingests racing onto the same parent (spec.md §5 invariant R1).
func (db *Database) BeginTxSerializable(ctx context.Context) (pgx.Tx, error) {
	return db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
}

// WithRetry runs fn, retrying with exponential backoff when the failure is a
// transient Postgres condition (deadlock, serialization failure, lock
// timeout) rather than a genuine application error.
func (db *Database) WithRetry(ctx context.Context, fn func(context.Context) error) error {
	const maxRetries = 3
	const baseDelay = 100 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) || attempt == maxRetries-1 {
			return err
		}

		delay := baseDelay * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "lock not available")
}
