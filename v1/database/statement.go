package database

import (
	"context"
	"database/sql"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// Statement is the receiver of an Execute call. QueryString may change
// between entry and exit when the SQL is built by the operation itself.
type Statement interface {
	QueryString() string
}

// Query is a literal SQL statement.
type Query string

func (q Query) QueryString() string {
	return string(q)
}

// Stmt is a prepared statement whose executions go through the hook
// registry.
type Stmt struct {
	query string
	stmt  *sql.Stmt
	hooks *hook.Registry
}

func (s *Stmt) QueryString() string {
	return s.query
}

// Execute runs the statement without returning rows.
func (s *Stmt) Execute(ctx context.Context, args ...any) (sql.Result, error) {
	res, err := s.hooks.Invoke(ctx, hook.Call{
		Receiver: s,
		Args:     args,
		Class:    HookClass,
		Function: OpExecute,
	}, func(ctx context.Context, args []any) (any, error) {
		return s.stmt.ExecContext(ctx, args...)
	})
	r, _ := res.(sql.Result)
	return r, err
}

// Query runs the statement and returns its rows.
func (s *Stmt) Query(ctx context.Context, args ...any) (*sql.Rows, error) {
	res, err := s.hooks.Invoke(ctx, hook.Call{
		Receiver: s,
		Args:     args,
		Class:    HookClass,
		Function: OpExecute,
	}, func(ctx context.Context, args []any) (any, error) {
		return s.stmt.QueryContext(ctx, args...)
	})
	rows, _ := res.(*sql.Rows)
	return rows, err
}

// Close releases the prepared statement.
func (s *Stmt) Close() error {
	return s.stmt.Close()
}
