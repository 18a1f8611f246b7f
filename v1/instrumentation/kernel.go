package instrumentation

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/correlator"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/kernel"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/propagation"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/scope"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/tracer"
)

// attrInvocation is the request attribute holding the request span.
const attrInvocation = "_otel_invocation"

const (
	familyRequest    = "http.request"
	familySubRequest = "http.subrequest"
)

func (i *Instrumentation) registerKernel() {
	i.hooks.Register(kernel.HookClass, kernel.OpHandle, i.handlePre, i.handlePost)
	i.hooks.Register(kernel.HookClass, kernel.OpHandleError, i.handleErrorPre, nil)
	i.hooks.Register(kernel.HookClass, kernel.OpTerminate, nil, i.terminatePost)
}

// SpanFromRequest returns the span of a request being handled, or a
// non-recording span.
func SpanFromRequest(req *kernel.Request) trace.Span {
	if inv := requestInvocation(req); inv != nil {
		return inv.span
	}
	return trace.SpanFromContext(context.Background())
}

func requestInvocation(req *kernel.Request) *invocation {
	if req == nil {
		return nil
	}
	v, ok := req.Attribute(attrInvocation)
	if !ok {
		return nil
	}
	inv, _ := v.(*invocation)
	return inv
}

func (i *Instrumentation) handlePre(ctx context.Context, call hook.Call) hook.Entry {
	req, _ := call.Arg(0).(*kernel.Request)
	typ, ok := call.Arg(1).(kernel.RequestType)
	if !ok {
		typ = kernel.MainRequest
	}

	method := "unknown"
	if req != nil {
		method = req.Method()
	}

	parentCtx := parent(ctx)
	name := method
	family := familyRequest
	kind := trace.SpanKindServer
	if typ == kernel.SubRequest {
		controller := "sub-request"
		if req != nil {
			if c := req.AttributeString(kernel.AttrController); c != "" {
				controller = c
			}
		}
		name = fmt.Sprintf("%s %s", method, controller)
		family = familySubRequest
		kind = trace.SpanKindInternal
	}

	var attrs []attribute.KeyValue
	if req != nil {
		if typ == kernel.MainRequest {
			parentCtx = i.propagator.Extract(parentCtx, propagation.Extractor(propagation.RequestGetter{}, req))
		}
		attrs = append(attrs,
			semconv.URLFull(req.URL()),
			semconv.HTTPRequestMethodKey.String(req.Method()),
			semconv.CodeFilepath(call.File),
		)
		if size := req.BodySize(); size >= 0 {
			attrs = append(attrs, semconv.HTTPRequestBodySize(int(size)))
		}
		if ua := req.HTTP.UserAgent(); ua != "" {
			attrs = append(attrs, semconv.UserAgentOriginal(ua))
		}
	}

	inv := i.start(ctx, parentCtx, family, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	if req != nil {
		req.SetAttribute(attrInvocation, inv)
	}
	return hook.Entry{Context: inv.ctx, Handle: inv}
}

func (i *Instrumentation) handlePost(ctx context.Context, call hook.Call, handle any, result any, err error) {
	inv, ok := handle.(*invocation)
	if !ok {
		return
	}
	resp, _ := result.(*kernel.Response)

	if inv.family == familySubRequest {
		if req, ok := call.Arg(0).(*kernel.Request); ok {
			req.RemoveAttribute(attrInvocation)
		}
		i.detach(inv)
		if err != nil {
			inv.fail(err)
		}
		if resp != nil {
			recordResponse(inv, resp)
		}
		i.end(inv, err)
		return
	}

	// The main request span stays attached and open until termination.
	if err != nil {
		inv.fail(err)
	}
	if resp != nil && i.cfg.ResponsePropagation {
		i.response.Inject(inv.ctx, propagation.Injector(propagation.ResponseSetter{}, resp))
	}
}

func (i *Instrumentation) handleErrorPre(ctx context.Context, call hook.Call) hook.Entry {
	err, _ := call.Arg(2).(error)
	req, _ := call.Arg(0).(*kernel.Request)

	if err == nil {
		return hook.Entry{}
	}
	if inv := requestInvocation(req); inv != nil {
		inv.fail(err)
	} else {
		recordError(trace.SpanFromContext(ctx), err)
	}
	return hook.Entry{}
}

func (i *Instrumentation) terminatePost(ctx context.Context, call hook.Call, _ any, _ any, err error) {
	req, _ := call.Arg(0).(*kernel.Request)
	if req == nil {
		return
	}
	inv := requestInvocation(req)
	if inv == nil {
		return
	}
	req.RemoveAttribute(attrInvocation)

	if top := scope.FromContext(ctx).Scope(); top != nil && top == inv.scope {
		i.detach(inv)
	} else if inv.scope != nil {
		// Someone else's scope is on top; leave the stack alone.
		i.warn("request scope is not on top at termination", nil, inv)
	}

	span := inv.span
	span.SetAttributes(correlator.Attribute.Bool(correlator.Take(ctx)))

	if route := req.AttributeString(kernel.AttrRoute); route != "" {
		inv.name = fmt.Sprintf("%s %s", req.Method(), route)
		span.SetName(inv.name)
		span.SetAttributes(semconv.HTTPRoute(route))
	}

	if err != nil {
		inv.fail(err)
	}

	resp, _ := call.Arg(1).(*kernel.Response)
	if resp == nil {
		i.end(inv, err)
		return
	}

	recordResponse(inv, resp)
	if i.cfg.ResponsePropagation {
		i.response.Inject(inv.ctx, propagation.Injector(propagation.ResponseSetter{}, resp))
	}
	i.end(inv, err)
}

// recordResponse sets the response attributes. An error status set from a
// recorded error keeps its message.
func recordResponse(inv *invocation, resp *kernel.Response) {
	if resp.StatusCode >= http.StatusBadRequest && !inv.failed {
		inv.span.SetStatus(codes.Error, "")
	}
	inv.span.SetAttributes(
		semconv.HTTPResponseStatusCode(resp.StatusCode),
		semconv.NetworkProtocolVersion(resp.Protocol),
		semconv.HTTPResponseBodySize(resp.ContentLength()),
	)
}

// recordError records err as an escaped exception and sets the error status.
func recordError(span trace.Span, err error) {
	tracer.RecordEscaped(span, err)
	span.SetStatus(codes.Error, err.Error())
}
