package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"contactbook/internal/apperr"
	"contactbook/internal/database"
	"contactbook/internal/database/dbtest"
	"contactbook/internal/models"
	"contactbook/internal/repositories"
	"contactbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func countAccounts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Account{}).Count(&n).Error)
	return n
}

func TestPool_PingAndDialect(t *testing.T) {
	pool := dbtest.Pool(t)
	assert.NoError(t, pool.Ping(context.Background()))
	assert.Equal(t, "sqlite", pool.Dialect())
	assert.Zero(t, pool.Stats().InUse)
}

func TestPool_WithTxCommits(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	err := pool.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.Account{Name: "alice", Password: "hash"}).Error
	})
	require.NoError(t, err)

	require.NoError(t, pool.WithConn(ctx, func(db *gorm.DB) error {
		assert.Equal(t, int64(1), countAccounts(t, db))
		return nil
	}))
}

func TestPool_WithTxRollsBackOnError(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	boom := apperr.Filesystem(errors.New("disk full"))

	err := pool.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.Account{Name: "alice", Password: "hash"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, apperr.ErrFilesystem)

	require.NoError(t, pool.WithConn(ctx, func(db *gorm.DB) error {
		assert.Zero(t, countAccounts(t, db))
		return nil
	}))
	assert.Zero(t, pool.Stats().InUse)
}

func TestPool_WithTxRollsBackOnPanic(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = pool.WithTx(ctx, func(tx *gorm.DB) error {
			tx.Create(&models.Account{Name: "alice", Password: "hash"})
			panic("kaboom")
		})
	})

	require.NoError(t, pool.WithConn(ctx, func(db *gorm.DB) error {
		assert.Zero(t, countAccounts(t, db))
		return nil
	}))
	assert.Zero(t, pool.Stats().InUse)
}

func TestPool_AcquireTimesOutWhenExhausted(t *testing.T) {
	cfg := dbtest.Config(t)
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.AcquireTimeout = 50 * time.Millisecond
	pool := dbtest.Open(t, cfg)
	ctx := context.Background()

	var inner error
	err := pool.WithConn(ctx, func(db *gorm.DB) error {
		inner = pool.WithConn(ctx, func(*gorm.DB) error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, apperr.ErrPoolExhausted)
	assert.False(t, apperr.IsClientError(inner))

	// The held connection went back to the pool.
	assert.NoError(t, pool.Ping(ctx))
}

func TestPool_ShortConnDeadlineStillReportsExhaustion(t *testing.T) {
	cfg := dbtest.Config(t)
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1
	cfg.ConnDeadline = 20 * time.Millisecond
	cfg.AcquireTimeout = 100 * time.Millisecond
	pool := dbtest.Open(t, cfg)
	ctx := context.Background()

	var inner error
	require.NoError(t, pool.WithConn(ctx, func(*gorm.DB) error {
		inner = pool.WithConn(ctx, func(*gorm.DB) error { return nil })
		return nil
	}))
	assert.ErrorIs(t, inner, apperr.ErrPoolExhausted)
	assert.NotErrorIs(t, inner, apperr.ErrConnectFailure)
}

func TestPool_FailedStatementsDoNotLogBoundValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	pool, err := database.Open(dbtest.Config(t), logger.NewWithCore(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	ctx := context.Background()
	require.NoError(t, pool.Migrate(ctx))

	const hash = "$2a$10$SECRETHASHVALUEthatmustnotbelogged"
	err = pool.WithConn(ctx, func(db *gorm.DB) error {
		repo := repositories.NewGORMAccountRepository(db)
		if _, err := repo.Create(&models.Account{Name: "alice", Password: "$2a$10$first"}); err != nil {
			return err
		}
		_, err := repo.Create(&models.Account{Name: "alice", Password: hash})
		return err
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	require.NotZero(t, logs.Len(), "the failed insert is logged")
	for _, entry := range logs.All() {
		assert.NotContains(t, entry.Message, hash)
		for _, v := range entry.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), hash)
		}
	}
}

func TestPool_CancelledContextIsConnectFailure(t *testing.T) {
	cfg := dbtest.Config(t)
	cfg.MaxOpenConns = 1
	pool := dbtest.Open(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pool.WithConn(ctx, func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, apperr.ErrConnectFailure)
}

func TestMigrate_DailyViewAggregates(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pool.WithTx(ctx, func(tx *gorm.DB) error {
		events := []models.ViewEvent{
			{ContactID: 1, ViewedAt: day},
			{ContactID: 1, ViewedAt: day.Add(2 * time.Hour)},
			{ContactID: 1, ViewedAt: day.Add(24 * time.Hour)},
			{ContactID: 2, ViewedAt: day},
		}
		return tx.Create(&events).Error
	}))

	var rows []models.DailyViewCount
	require.NoError(t, pool.WithConn(ctx, func(db *gorm.DB) error {
		return db.Where("contact_id = ?", 1).Order("view_date").Find(&rows).Error
	}))
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-03-14", rows[0].ViewDate)
	assert.Equal(t, int64(2), rows[0].ViewCount)
	assert.Equal(t, "2026-03-15", rows[1].ViewDate)
	assert.Equal(t, int64(1), rows[1].ViewCount)

	// Running the bootstrap again is harmless.
	assert.NoError(t, pool.Migrate(ctx))
}
