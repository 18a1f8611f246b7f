package propagation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceResponseHeader = "traceresponse"
	ServerTimingHeader  = "server-timing"
)

// TraceResponse injects the span context as a traceresponse header using
// the traceparent format. It never extracts.
type TraceResponse struct{}

var _ propagation.TextMapPropagator = TraceResponse{}

func (TraceResponse) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	if v, ok := traceparent(ctx); ok {
		carrier.Set(TraceResponseHeader, v)
	}
}

func (TraceResponse) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (TraceResponse) Fields() []string {
	return []string{TraceResponseHeader}
}

// ServerTiming injects the span context as a server-timing metric named
// traceparent, readable by browsers through the Resource Timing API.
type ServerTiming struct{}

var _ propagation.TextMapPropagator = ServerTiming{}

func (ServerTiming) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	if v, ok := traceparent(ctx); ok {
		carrier.Set(ServerTimingHeader, fmt.Sprintf("traceparent;desc=%q", v))
	}
}

func (ServerTiming) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (ServerTiming) Fields() []string {
	return []string{ServerTimingHeader}
}

// Response returns the propagator for response headers: server-timing
// followed by traceresponse.
func Response() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(ServerTiming{}, TraceResponse{})
}

func traceparent(ctx context.Context) (string, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", false
	}
	return fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), sc.TraceFlags()&trace.FlagsSampled), true
}
