package database

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

type invocationKey struct{}

// QueryTracer runs the Execute hook pairs around every pgx query.
type QueryTracer struct {
	hooks *hook.Registry
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(hooks *hook.Registry) *QueryTracer {
	return &QueryTracer{hooks: hooks}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, inv := t.hooks.Enter(ctx, hook.Call{
		Receiver: Query(data.SQL),
		Args:     data.Args,
		Class:    HookClass,
		Function: OpExecute,
	})
	return context.WithValue(ctx, invocationKey{}, inv)
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	inv, _ := ctx.Value(invocationKey{}).(*hook.Invocation)
	inv.Exit(data.CommandTag, data.Err)
}
