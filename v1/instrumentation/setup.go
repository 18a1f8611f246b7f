package instrumentation

import (
	"context"
	"errors"
	"time"

	otelpropagation "go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/correlator"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/propagation"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/scope"
)

const (
	// ScopeName is the instrumentation scope of all spans created here.
	ScopeName = "github.com/Aleph-Alpha/otel-instrumentation/v1/instrumentation"

	Version = "1.0.0"
)

// Instrumentation creates spans for the kernel, message bus, statement and
// HTTP client operations by registering entry/exit pairs on a hook registry.
type Instrumentation struct {
	cfg        Config
	hooks      *hook.Registry
	tracer     trace.Tracer
	propagator otelpropagation.TextMapPropagator
	response   otelpropagation.TextMapPropagator
	skip       func(receiver any) bool
	observer   observability.Observer
	logger     Logger
}

// New creates the instrumentation. Nothing is traced until Register is
// called.
func New(cfg Config, hooks *hook.Registry, tp trace.TracerProvider, propagator otelpropagation.TextMapPropagator) *Instrumentation {
	if propagator == nil {
		propagator = otelpropagation.TraceContext{}
	}
	return &Instrumentation{
		cfg:        cfg,
		hooks:      hooks,
		tracer:     tp.Tracer(ScopeName, trace.WithInstrumentationVersion(Version)),
		propagator: propagator,
		response:   propagation.Response(),
	}
}

// WithObserver attaches an observer notified about every ended span.
func (i *Instrumentation) WithObserver(observer observability.Observer) *Instrumentation {
	i.observer = observer
	return i
}

// WithLogger sets the logger for instrumentation problems.
func (i *Instrumentation) WithLogger(logger Logger) *Instrumentation {
	i.logger = logger
	return i
}

// WithSkip sets a predicate over bus and sender receivers; dispatches and
// sends on receivers it accepts are not traced.
func (i *Instrumentation) WithSkip(skip func(receiver any) bool) *Instrumentation {
	i.skip = skip
	return i
}

// CorrelateLogs makes warnings and errors logged through l's context-aware
// entry points show up as app.haslog on the request or consume span.
func (i *Instrumentation) CorrelateLogs(l LevelHooker) {
	correlator.Register(l)
}

// Register installs the unit initializers and the entry/exit pairs of every
// enabled family.
func (i *Instrumentation) Register() {
	i.hooks.OnUnit(scope.WithStack)
	i.hooks.OnUnit(correlator.WithFlag)

	if i.cfg.enabled(FamilyKernel) {
		i.registerKernel()
	}
	if i.cfg.enabled(FamilyMessenger) {
		i.registerMessenger()
	}
	if i.cfg.enabled(FamilyStatement) {
		i.registerStatement()
	}
	if i.cfg.enabled(FamilyHTTPClient) {
		i.registerHTTPClient()
	}
}

// invocation is the handle passed from an entry action to its exit action.
type invocation struct {
	family string
	name   string
	ctx    context.Context
	span   trace.Span
	scope  *scope.Scope
	start  time.Time
	failed bool
	err    error
}

// fail records err on the span and sets the error status with its message.
// An error that was already recorded, e.g. by HandleError before it was
// returned from Handle, is not recorded twice.
func (inv *invocation) fail(err error) {
	if inv.err != nil && errors.Is(err, inv.err) {
		return
	}
	recordError(inv.span, err)
	inv.failed = true
	inv.err = err
}

// parent returns the context new spans are parented on: ctx when it carries
// a span, else ctx with the span of the unit's current context.
func parent(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if cur := scope.FromContext(ctx).Current(); cur != nil {
		return trace.ContextWithSpan(ctx, trace.SpanFromContext(cur))
	}
	return ctx
}

// start starts a span under parentCtx. The span is attached to the unit's
// stack only when the caller's ctx carries no span of its own; callers that
// thread ctx explicitly, including goroutines fanned out from one request,
// never touch the shared stack.
func (i *Instrumentation) start(ctx, parentCtx context.Context, family, name string, opts ...trace.SpanStartOption) *invocation {
	spanCtx, span := i.tracer.Start(parentCtx, name, opts...)
	inv := &invocation{
		family: family,
		name:   name,
		ctx:    spanCtx,
		span:   span,
		start:  time.Now(),
	}
	if trace.SpanContextFromContext(ctx).IsValid() {
		return inv
	}
	if stack := scope.FromContext(spanCtx); stack != nil {
		inv.scope = stack.Attach(spanCtx)
	}
	return inv
}

func (i *Instrumentation) detach(inv *invocation) {
	if inv.scope == nil {
		return
	}
	if err := inv.scope.Detach(); err != nil {
		i.warn("failed to detach scope", err, inv)
	}
	inv.scope = nil
}

// end ends the span and notifies the observer.
func (i *Instrumentation) end(inv *invocation, err error) {
	inv.span.End()
	if i.observer != nil {
		i.observer.ObserveOperation(observability.OperationContext{
			Component: "instrumentation",
			Operation: inv.family,
			Resource:  inv.name,
			Duration:  time.Since(inv.start),
			Error:     err,
		})
	}
}

func (i *Instrumentation) warn(msg string, err error, inv *invocation) {
	if i.logger != nil {
		i.logger.Warn(msg, err, map[string]interface{}{
			"span": inv.name,
		})
	}
}
