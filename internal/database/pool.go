// Package database owns the bounded pool of store connections and hands out
// scoped connections and transactions to the service layer.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contactbook/internal/apperr"
	"contactbook/internal/config"
	"contactbook/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Transactor runs work on a single pooled connection. The connection is
// released when fn returns, on every path.
type Transactor interface {
	// WithConn runs fn on one connection without a transaction.
	WithConn(ctx context.Context, fn func(db *gorm.DB) error) error
	// WithTx runs fn inside a transaction that is committed when fn returns
	// nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Pool is the process-wide connection pool. Build it once at startup and pass
// it to the services that need it.
type Pool struct {
	db             *gorm.DB
	sqlDB          *sql.DB
	log            *logger.Logger
	acquireTimeout time.Duration
	connDeadline   time.Duration
}

var _ Transactor = (*Pool)(nil)

// Open connects to the store described by cfg and configures the pool bounds.
// It does not verify reachability, call Ping for that.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Pool, error) {
	poolLog := log.With("component", "database")

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLog := gormLogger.New(
		zap.NewStdLog(poolLog.SugaredLogger.Desugar()),
		gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // bound values include password hashes
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, apperr.ConnectFailure(fmt.Errorf("failed to open %s store: %w", cfg.Driver, err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.ConnectFailure(fmt.Errorf("failed to get sql.DB: %w", err))
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	poolLog.Info("connection pool configured",
		"driver", cfg.Driver,
		"host", cfg.Host,
		"port", cfg.Port,
		"user", cfg.User,
		"database", cfg.Name,
		"path", cfg.Path,
		"max_connections", cfg.MaxOpenConns,
		"acquire_timeout", cfg.AcquireTimeout.String(),
		"conn_deadline", cfg.ConnDeadline.String(),
	)

	return &Pool{
		db:             db,
		sqlDB:          sqlDB,
		log:            poolLog,
		acquireTimeout: cfg.AcquireTimeout,
		connDeadline:   cfg.ConnDeadline,
	}, nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := fmt.Sprintf(
			"file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate",
			cfg.Path,
		)
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Dialect returns the name of the underlying store dialect.
func (p *Pool) Dialect() string {
	return p.db.Dialector.Name()
}

// WithConn acquires a connection, bounds all work on it by the configured
// deadline and releases it when fn returns. Acquisition is bounded by the
// acquire timeout alone.
func (p *Pool) WithConn(ctx context.Context, fn func(db *gorm.DB) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, sql.ErrConnDone) {
			p.log.Warn("failed to release connection", "error", cerr)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.connDeadline)
	defer cancel()

	db := p.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	db.Statement.ConnPool = conn
	return fn(db)
}

// WithTx is WithConn plus begin/commit/rollback. A panic in fn rolls back and
// is re-raised.
func (p *Pool) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return p.WithConn(ctx, func(conn *gorm.DB) (err error) {
		tx := conn.Begin()
		if tx.Error != nil {
			return apperr.Query(fmt.Errorf("failed to begin transaction: %w", tx.Error))
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if r := recover(); r != nil {
				p.rollback(tx, fmt.Errorf("panic: %v", r))
				panic(r)
			}
			p.rollback(tx, err)
		}()

		if err = fn(tx); err != nil {
			return err
		}
		if err = tx.Commit().Error; err != nil {
			return apperr.Query(fmt.Errorf("failed to commit transaction: %w", err))
		}
		committed = true
		return nil
	})
}

func (p *Pool) rollback(tx *gorm.DB, cause error) {
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		p.log.Error("rollback failed", "error", err, "cause", cause)
		return
	}
	p.log.Warn("transaction rolled back", "cause", cause)
}

func (p *Pool) acquire(ctx context.Context) (*sql.Conn, error) {
	acqCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.sqlDB.Conn(acqCtx)
	if err == nil {
		return conn, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, apperr.PoolExhausted(fmt.Errorf("no connection within %s: %w", p.acquireTimeout, err))
	}
	return nil, apperr.ConnectFailure(fmt.Errorf("failed to acquire connection: %w", err))
}

// Ping checks that the store is reachable over a pooled connection.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithConn(ctx, func(db *gorm.DB) error {
		var one int
		if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
			return apperr.ConnectFailure(fmt.Errorf("liveness query failed: %w", err))
		}
		return nil
	})
}

// Stats exposes the pool counters of database/sql.
func (p *Pool) Stats() sql.DBStats {
	return p.sqlDB.Stats()
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	return p.sqlDB.Close()
}
