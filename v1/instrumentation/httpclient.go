package instrumentation

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/httpclient"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/propagation"
)

const familyHTTPClient = "http.client"

func (i *Instrumentation) registerHTTPClient() {
	i.hooks.Register(httpclient.HookClass, httpclient.OpDo, i.clientPre, i.clientPost)
}

func (i *Instrumentation) clientPre(ctx context.Context, call hook.Call) hook.Entry {
	req, ok := call.Arg(0).(*httpclient.Request)
	if !ok {
		return hook.Entry{}
	}

	inv := i.start(ctx, parent(ctx), familyHTTPClient, req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.URLFull(req.URL),
			semconv.HTTPRequestMethodKey.String(req.Method),
		),
	)
	if req.Header != nil {
		i.propagator.Inject(inv.ctx, propagation.Injector(propagation.HeaderSetter{}, req.Header))
	}
	return hook.Entry{Context: inv.ctx, Handle: inv}
}

func (i *Instrumentation) clientPost(ctx context.Context, call hook.Call, handle any, result any, err error) {
	inv, ok := handle.(*invocation)
	if !ok {
		return
	}
	i.detach(inv)

	if err != nil {
		inv.fail(err)
	}
	if resp, ok := result.(*httpclient.Response); ok && resp != nil {
		if resp.StatusCode >= http.StatusBadRequest && !inv.failed {
			inv.span.SetStatus(codes.Error, "")
		}
		inv.span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
		if resp.Protocol != "" {
			inv.span.SetAttributes(semconv.NetworkProtocolVersion(resp.Protocol))
		}
		if resp.Size > 0 {
			inv.span.SetAttributes(semconv.HTTPResponseBodySize(int(resp.Size)))
		}
	}
	i.end(inv, err)
}
