package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/correlator"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/propagation"
)

const (
	familyDispatch = "dispatch"
	familyConsume  = "consume"
	familySend     = "send"
)

func (i *Instrumentation) registerMessenger() {
	i.hooks.Register(bus.HookBusClass, bus.OpDispatch, i.dispatchPre, i.dispatchPost)
	i.hooks.Register(bus.HookSenderClass, bus.OpSend, i.sendPre, i.sendPost)
}

// traceable reports whether dispatches and sends on receiver are traced.
func (i *Instrumentation) traceable(receiver any) bool {
	if t, ok := receiver.(bus.Traceable); ok && !t.Traceable() {
		return false
	}
	if i.skip != nil && i.skip(receiver) {
		return false
	}
	name := bus.TypeName(receiver)
	for _, skip := range i.cfg.Messenger.SkipTypes {
		if skip == name {
			return false
		}
	}
	return true
}

func (i *Instrumentation) dispatchPre(ctx context.Context, call hook.Call) hook.Entry {
	if !i.traceable(call.Receiver) {
		return hook.Entry{}
	}

	msg := call.Arg(0)
	env, _ := msg.(*bus.Envelope)

	msgType := bus.TypeName(msg)
	family, prefix := familyDispatch, "Dispatch"
	parentCtx := parent(ctx)
	attrs := []attribute.KeyValue{semconv.CodeFilepath(call.File)}

	if env != nil {
		msgType = env.MessageType()
		if received, ok := bus.Last[bus.ReceivedStamp](env); ok {
			family, prefix = familyConsume, "Consume"
			parentCtx = i.propagator.Extract(parentCtx, propagation.Extractor(propagation.EnvelopeGetter{}, env))
			if received.Transport != "" {
				attrs = append(attrs, semconv.MessagingSystemKey.String(received.Transport))
			}
		}
	}
	if named, ok := call.Receiver.(interface{ Name() string }); ok {
		attrs = append(attrs, semconv.MessagingDestinationName(named.Name()))
	}

	inv := i.start(ctx, parentCtx, family, fmt.Sprintf("%s %s", prefix, msgType),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return hook.Entry{Context: inv.ctx, Handle: inv}
}

func (i *Instrumentation) dispatchPost(ctx context.Context, call hook.Call, handle any, _ any, err error) {
	inv, ok := handle.(*invocation)
	if !ok {
		return
	}
	i.detach(inv)

	if inv.family == familyConsume {
		inv.span.SetAttributes(correlator.Attribute.Bool(correlator.Take(ctx)))
	}
	if err != nil {
		inv.fail(err)
	}
	i.end(inv, err)
}

func (i *Instrumentation) sendPre(ctx context.Context, call hook.Call) hook.Entry {
	if !i.traceable(call.Receiver) {
		return hook.Entry{}
	}
	env, ok := call.Arg(0).(*bus.Envelope)
	if !ok {
		return hook.Entry{}
	}

	inv := i.start(ctx, parent(ctx), familySend, fmt.Sprintf("Sender %s", env.MessageType()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			semconv.CodeFunction(call.Function),
			semconv.CodeNamespace(bus.TypeName(call.Receiver)),
			semconv.CodeFilepath(call.File),
			semconv.CodeLineNumber(call.Line),
		),
	)

	// The transport carries the sender span to the consumer.
	stamp := bus.NewTraceContextStamp()
	i.propagator.Inject(inv.ctx, propagation.Injector(propagation.StampSetter{}, stamp))
	env = env.WithoutAll(stamp).With(stamp)

	return hook.Entry{Context: inv.ctx, Args: []any{env}, Handle: inv}
}

func (i *Instrumentation) sendPost(ctx context.Context, call hook.Call, handle any, _ any, err error) {
	inv, ok := handle.(*invocation)
	if !ok {
		return
	}
	i.detach(inv)
	if err != nil {
		inv.fail(err)
	}
	i.end(inv, err)
}
