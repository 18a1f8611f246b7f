package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/database"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/tracer"
)

const (
	familyStatement = "statement"

	statementSpanName = "Statement execute"
)

// DBQueryKey carries the literal query text of a statement.
const DBQueryKey = attribute.Key("db.query")

func (i *Instrumentation) registerStatement() {
	i.hooks.Register(database.HookClass, database.OpExecute, i.statementPre, i.statementPost)
}

func (i *Instrumentation) statementPre(ctx context.Context, call hook.Call) hook.Entry {
	attrs := []attribute.KeyValue{semconv.CodeFilepath(call.File)}
	if stmt, ok := call.Receiver.(database.Statement); ok {
		attrs = append(attrs, DBQueryKey.String(stmt.QueryString()))
	}

	inv := i.start(ctx, parent(ctx), familyStatement, statementSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return hook.Entry{Context: inv.ctx, Handle: inv}
}

func (i *Instrumentation) statementPost(ctx context.Context, call hook.Call, handle any, _ any, err error) {
	inv, ok := handle.(*invocation)
	if !ok {
		return
	}
	i.detach(inv)

	// gorm builds the SQL while the statement runs.
	if stmt, ok := call.Receiver.(database.Statement); ok {
		if q := stmt.QueryString(); q != "" {
			inv.span.SetAttributes(DBQueryKey.String(q))
		}
	}
	if err != nil {
		tracer.RecordEscaped(inv.span, err)
	}
	i.end(inv, err)
}
