// Package dbtest opens throwaway sqlite pools for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"contactbook/internal/config"
	"contactbook/internal/database"
	"contactbook/pkg/logger"
)

// Config returns a sqlite configuration rooted in a fresh temp dir.
func Config(tb testing.TB) config.DatabaseConfig {
	tb.Helper()
	return config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(tb.TempDir(), "contactbook.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Minute,
		AcquireTimeout:  2 * time.Second,
		ConnDeadline:    10 * time.Second,
	}
}

// Open opens a migrated pool built from cfg and closes it when the test ends.
func Open(tb testing.TB, cfg config.DatabaseConfig) *database.Pool {
	tb.Helper()
	pool, err := database.Open(cfg, logger.Nop())
	if err != nil {
		tb.Fatalf("failed to open test pool: %v", err)
	}
	tb.Cleanup(func() { _ = pool.Close() })

	if err := pool.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate test pool: %v", err)
	}
	return pool
}

// Pool is Open with the default test configuration.
func Pool(tb testing.TB) *database.Pool {
	tb.Helper()
	return Open(tb, Config(tb))
}
