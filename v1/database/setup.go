package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// Client owns a database/sql pool and a gorm handle on the same database.
// Statements executed through either of them, or through the pgx driver,
// run the Execute hook pairs.
//
// Concurrency: the active pools are stored in atomic pointers and swapped
// during reconnection without blocking readers.
type Client struct {
	cfg    Config
	hooks  *hook.Registry
	logger Logger

	sql  atomic.Pointer[sql.DB]
	gorm atomic.Pointer[gorm.DB]

	shutdownSignal  chan struct{}
	retryChanSignal chan error

	closeShutdownOnce sync.Once
}

// NewClient connects to the database. hooks and logger may be nil.
func NewClient(cfg Config, hooks *hook.Registry, logger Logger) (*Client, error) {
	cfg.ConnectionDetails = cfg.ConnectionDetails.withDefaults()
	c := &Client{
		cfg:             cfg,
		hooks:           hooks,
		logger:          logger,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	if err := c.connect(); err != nil {
		return nil, fmt.Errorf("error in connecting to database: %w", err)
	}
	return c, nil
}

func (c *Client) connect() error {
	sqlDB, err := openSQL(c.cfg, c.hooks)
	if err != nil {
		return err
	}
	gormDB, err := openGorm(c.cfg, c.hooks)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}

	if old := c.sql.Swap(sqlDB); old != nil {
		_ = old.Close()
	}
	if old := c.gorm.Swap(gormDB); old != nil {
		if db, err := old.DB(); err == nil {
			_ = db.Close()
		}
	}
	c.logInfo("Successfully connected to database", nil, map[string]interface{}{
		"driver": c.cfg.Connection.Driver,
		"host":   c.cfg.Connection.Host,
	})
	return nil
}

// openSQL opens the database/sql pool. The pgx driver gets a QueryTracer,
// lib/pq relies on Stmt.
func openSQL(cfg Config, hooks *hook.Registry) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Connection.Driver {
	case DriverPQ, "":
		db, err = sql.Open(DriverPQ, cfg.Connection.DSN())
	case DriverPGX:
		var connConfig *pgx.ConnConfig
		connConfig, err = pgx.ParseConfig(cfg.Connection.DSN())
		if err == nil {
			connConfig.Tracer = NewQueryTracer(hooks)
			db = stdlib.OpenDB(*connConfig)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Connection.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	applyPool(db, cfg.ConnectionDetails)
	return db, nil
}

// openGorm opens a gorm handle with the statement plugin installed.
func openGorm(cfg Config, hooks *hook.Registry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Connection.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database with gorm: %w", err)
	}
	if err := db.Use(NewGormPlugin(hooks)); err != nil {
		return nil, fmt.Errorf("failed to install gorm plugin: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get gorm database instance: %w", err)
	}
	applyPool(sqlDB, cfg.ConnectionDetails)
	return db, nil
}

func applyPool(db *sql.DB, d ConnectionDetails) {
	db.SetMaxOpenConns(d.MaxOpenConns)
	db.SetMaxIdleConns(d.MaxIdleConns)
	db.SetConnMaxLifetime(d.ConnMaxLifetime)
}

// SQL returns the current database/sql pool.
func (c *Client) SQL() *sql.DB {
	return c.sql.Load()
}

// Gorm returns the current gorm handle bound to ctx.
func (c *Client) Gorm(ctx context.Context) *gorm.DB {
	db := c.gorm.Load()
	if db == nil {
		return nil
	}
	return db.WithContext(ctx)
}

// Prepare prepares query. With the pgx driver executions are traced by the
// driver, so the statement skips the hooks.
func (c *Client) Prepare(ctx context.Context, query string) (*Stmt, error) {
	db := c.SQL()
	if db == nil {
		return nil, ErrNotConnected
	}
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return &Stmt{query: query, stmt: stmt, hooks: c.stmtHooks()}, nil
}

// Exec executes query without returning rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db := c.SQL()
	if db == nil {
		return nil, ErrNotConnected
	}
	res, err := c.stmtHooks().Invoke(ctx, hook.Call{
		Receiver: Query(query),
		Args:     args,
		Class:    HookClass,
		Function: OpExecute,
	}, func(ctx context.Context, args []any) (any, error) {
		return db.ExecContext(ctx, query, args...)
	})
	r, _ := res.(sql.Result)
	return r, err
}

// Query executes query and returns its rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db := c.SQL()
	if db == nil {
		return nil, ErrNotConnected
	}
	res, err := c.stmtHooks().Invoke(ctx, hook.Call{
		Receiver: Query(query),
		Args:     args,
		Class:    HookClass,
		Function: OpExecute,
	}, func(ctx context.Context, args []any) (any, error) {
		return db.QueryContext(ctx, query, args...)
	})
	rows, _ := res.(*sql.Rows)
	return rows, err
}

// Transaction runs fn in a gorm transaction. Returning an error rolls back.
func (c *Client) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := c.Gorm(ctx)
	if db == nil {
		return ErrNotConnected
	}
	return db.Transaction(fn)
}

func (c *Client) stmtHooks() *hook.Registry {
	if c.cfg.Connection.Driver == DriverPGX {
		return nil
	}
	return c.hooks
}

// RetryConnection reconnects whenever MonitorConnection reports a failure,
// until ctx is done or the client shuts down.
func (c *Client) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-c.shutdownSignal:
			c.logInfo("Stopping RetryConnection loop due to shutdown signal", nil, nil)
			return
		case <-ctx.Done():
			return
		case <-c.retryChanSignal:
		innerLoop:
			for {
				select {
				case <-c.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
					if err := c.connect(); err != nil {
						c.logError("Database reconnection failed", err, nil)
						time.Sleep(time.Second)
						continue innerLoop
					}
					continue outerLoop
				}
			}
		}
	}
}

// MonitorConnection pings the database every HealthCheckInterval and
// signals RetryConnection on failure.
func (c *Client) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ConnectionDetails.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdownSignal:
			c.logInfo("Stopping MonitorConnection loop due to shutdown signal", nil, nil)
			return
		case <-ticker.C:
			if err := c.healthCheck(); err != nil {
				select {
				case c.retryChanSignal <- err:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) healthCheck() error {
	db := c.SQL()
	if db == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// GracefulShutdown stops the monitoring loops and closes both pools.
func (c *Client) GracefulShutdown() error {
	c.closeShutdownOnce.Do(func() {
		close(c.shutdownSignal)
	})
	var firstErr error
	if db := c.sql.Load(); db != nil {
		firstErr = db.Close()
	}
	if g := c.gorm.Load(); g != nil {
		if db, err := g.DB(); err == nil {
			if err := db.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *Client) logInfo(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Info(msg, err, fields)
	}
}

func (c *Client) logError(msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Error(msg, err, fields)
	}
}
