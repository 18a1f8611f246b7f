package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

var errBroken = errors.New("relation does not exist")

// fakeDriver accepts every statement; statements containing "broken" fail.
type fakeDriver struct{}

type fakeConn struct{}

type fakeStmt struct {
	query string
}

type fakeRows struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return fakeConn{}, nil }

func (fakeConn) Prepare(query string) (driver.Stmt, error) { return fakeStmt{query: query}, nil }
func (fakeConn) Close() error                              { return nil }
func (fakeConn) Begin() (driver.Tx, error)                 { return nil, errors.New("not supported") }

func (s fakeStmt) Close() error  { return nil }
func (s fakeStmt) NumInput() int { return -1 }

func (s fakeStmt) Exec([]driver.Value) (driver.Result, error) {
	if strings.Contains(s.query, "broken") {
		return nil, errBroken
	}
	return driver.RowsAffected(1), nil
}

func (s fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	if strings.Contains(s.query, "broken") {
		return nil, errBroken
	}
	return fakeRows{}, nil
}

func (fakeRows) Columns() []string         { return nil }
func (fakeRows) Close() error              { return nil }
func (fakeRows) Next([]driver.Value) error { return io.EOF }

var registerOnce sync.Once

func openFake(t *testing.T) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("dbtest", fakeDriver{}) })
	db, err := sql.Open("dbtest", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestClient(t *testing.T, cfg Config, hooks *hook.Registry) *Client {
	c := &Client{
		cfg:             cfg,
		hooks:           hooks,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	c.sql.Store(openFake(t))
	return c
}

type execution struct {
	entryQuery string
	exitQuery  string
	args       []any
	err        error
}

// recordExecutions registers a pair that records every Execute call.
func recordExecutions(reg *hook.Registry) *[]execution {
	var (
		mu  sync.Mutex
		out []execution
	)
	reg.Register(HookClass, OpExecute,
		func(ctx context.Context, call hook.Call) hook.Entry {
			return hook.Entry{Handle: call.Receiver.(Statement).QueryString()}
		},
		func(ctx context.Context, call hook.Call, handle any, result any, err error) {
			mu.Lock()
			defer mu.Unlock()
			out = append(out, execution{
				entryQuery: handle.(string),
				exitQuery:  call.Receiver.(Statement).QueryString(),
				args:       call.Args,
				err:        err,
			})
		})
	return &out
}

func TestExecRunsHooks(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)
	c := newTestClient(t, Config{}, reg)

	res, err := c.Exec(context.Background(), "UPDATE orders SET state = $1", "paid")
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.Len(t, *execs, 1)
	assert.Equal(t, "UPDATE orders SET state = $1", (*execs)[0].entryQuery)
	assert.Equal(t, []any{"paid"}, (*execs)[0].args)
	assert.NoError(t, (*execs)[0].err)
}

func TestExecReturnsErrorUnchanged(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)
	c := newTestClient(t, Config{}, reg)

	_, err := c.Exec(context.Background(), "DELETE FROM broken")
	assert.ErrorIs(t, err, errBroken)

	require.Len(t, *execs, 1)
	assert.ErrorIs(t, (*execs)[0].err, errBroken)
}

func TestPreparedStatement(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)
	c := newTestClient(t, Config{}, reg)
	ctx := context.Background()

	stmt, err := c.Prepare(ctx, "SELECT id FROM orders WHERE state = $1")
	require.NoError(t, err)
	defer stmt.Close()

	rows, err := stmt.Query(ctx, "open")
	require.NoError(t, err)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Close())

	_, err = stmt.Execute(ctx, "closed")
	require.NoError(t, err)

	require.Len(t, *execs, 2)
	for _, e := range *execs {
		assert.Equal(t, "SELECT id FROM orders WHERE state = $1", e.exitQuery)
	}
}

func TestPGXDriverSkipsStatementHooks(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)
	c := newTestClient(t, Config{Connection: Connection{Driver: DriverPGX}}, reg)

	_, err := c.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, *execs)
}

func TestNotConnected(t *testing.T) {
	c := &Client{}
	_, err := c.Exec(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.Prepare(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.Transaction(context.Background(), func(*gorm.DB) error { return nil }), ErrNotConnected)
	assert.Nil(t, c.Gorm(context.Background()))
}

func TestQueryTracer(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)
	tr := NewQueryTracer(reg)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  "INSERT INTO orders (id) VALUES ($1)",
		Args: []any{7},
	})
	assert.True(t, hook.InUnit(ctx))
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("INSERT 0 1"),
		Err:        errBroken,
	})

	require.Len(t, *execs, 1)
	assert.Equal(t, "INSERT INTO orders (id) VALUES ($1)", (*execs)[0].exitQuery)
	assert.Equal(t, []any{7}, (*execs)[0].args)
	assert.ErrorIs(t, (*execs)[0].err, errBroken)
}

func TestQueryTracerEndWithoutStart(t *testing.T) {
	tr := NewQueryTracer(hook.NewRegistry(nil))
	// Should not panic
	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
}

type order struct {
	ID    int
	State string
}

func TestGormPluginSeesFinalSQL(t *testing.T) {
	reg := hook.NewRegistry(nil)
	execs := recordExecutions(reg)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: openFake(t)}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Use(NewGormPlugin(reg)))

	var orders []order
	require.NoError(t, db.WithContext(context.Background()).Where("state = ?", "open").Find(&orders).Error)

	require.Len(t, *execs, 1)
	assert.Empty(t, (*execs)[0].entryQuery)
	assert.Contains(t, (*execs)[0].exitQuery, `SELECT * FROM "orders"`)
	assert.NoError(t, (*execs)[0].err)
}

func TestOpenSQLUnknownDriver(t *testing.T) {
	_, err := openSQL(Config{Connection: Connection{Driver: "sqlite"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestConnectionDSN(t *testing.T) {
	conn := Connection{Host: "db", Port: "5432", User: "app", Password: "secret", DbName: "orders", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=orders sslmode=disable", conn.DSN())
}

func TestConnectionDetailsDefaults(t *testing.T) {
	d := ConnectionDetails{MaxOpenConns: 5}.withDefaults()
	assert.Equal(t, 5, d.MaxOpenConns)
	assert.Equal(t, DefaultMaxIdleConns, d.MaxIdleConns)
	assert.Equal(t, DefaultConnMaxLifetime, d.ConnMaxLifetime)
	assert.Equal(t, DefaultHealthCheckInterval, d.HealthCheckInterval)
}

func TestGracefulShutdownTwice(t *testing.T) {
	c := newTestClient(t, Config{}, nil)
	assert.NoError(t, c.GracefulShutdown())
	assert.NotPanics(t, func() { _ = c.GracefulShutdown() })
}
