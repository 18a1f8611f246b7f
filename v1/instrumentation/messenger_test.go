package instrumentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/correlator"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/logger"
)

type orderPlaced struct {
	ID int
}

func newOrdersBus(f *fixture, handler func(ctx context.Context, msg orderPlaced) (any, error)) *bus.MessageBus {
	b := bus.NewMessageBus("orders", f.hooks)
	bus.Handle(b, "orders.placed", handler)
	return b
}

func TestDispatchSendConsumeRoundTrip(t *testing.T) {
	f := newFixture(t, Config{})
	transport := bus.NewInMemoryTransport()

	var handled []int
	b := newOrdersBus(f, func(ctx context.Context, msg orderPlaced) (any, error) {
		handled = append(handled, msg.ID)
		return nil, nil
	})
	b.AddSender("memory", transport)
	b.Route(bus.TypeName(orderPlaced{}), "memory")

	ctx, root := f.rootContext("checkout")
	_, err := b.Dispatch(ctx, orderPlaced{ID: 1})
	require.NoError(t, err)
	root.End()

	queued := transport.Queued()
	require.Len(t, queued, 1)
	stamps := bus.All[*bus.TraceContextStamp](queued[0])
	require.Len(t, stamps, 1)
	assert.Contains(t, stamps[0].Headers, "traceparent")

	w := bus.NewWorker(bus.WorkerConfig{}, b, nil, f.hooks, nil)
	require.NoError(t, w.Process(context.Background(), "memory", transport, queued[0]))
	assert.Equal(t, []int{1}, handled)

	dispatch := f.span(t, "Dispatch instrumentation.orderPlaced")
	send := f.span(t, "Sender instrumentation.orderPlaced")
	consume := f.span(t, "Consume instrumentation.orderPlaced")

	assert.Equal(t, root.SpanContext().SpanID(), dispatch.Parent().SpanID())
	assert.Equal(t, dispatch.SpanContext().SpanID(), send.Parent().SpanID())
	assert.Equal(t, send.SpanContext().TraceID(), consume.SpanContext().TraceID())
	assert.Equal(t, send.SpanContext().SpanID(), consume.Parent().SpanID())
	assert.True(t, consume.Parent().IsRemote())

	for _, s := range []interface{ SpanKind() trace.SpanKind }{dispatch, send, consume} {
		assert.Equal(t, trace.SpanKindInternal, s.SpanKind())
	}

	da := spanAttrs(dispatch)
	assert.Equal(t, "orders", da[semconv.MessagingDestinationNameKey].AsString())
	_, ok := da[semconv.MessagingSystemKey]
	assert.False(t, ok)

	sa := spanAttrs(send)
	assert.Equal(t, "Send", sa[semconv.CodeFunctionKey].AsString())
	assert.Equal(t, "bus.InMemoryTransport", sa[semconv.CodeNamespaceKey].AsString())
	assert.Positive(t, sa[semconv.CodeLineNumberKey].AsInt64())

	ca := spanAttrs(consume)
	assert.Equal(t, "memory", ca[semconv.MessagingSystemKey].AsString())
	assert.False(t, ca[correlator.Attribute].AsBool())
	assert.Len(t, transport.Acked(), 1)
}

func TestSendReplacesTraceContextStamp(t *testing.T) {
	f := newFixture(t, Config{})
	transport := bus.NewInMemoryTransport()
	ctx, root := f.rootContext("resend")
	defer root.End()

	stale := &bus.TraceContextStamp{Headers: map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"}}
	_, err := bus.Send(ctx, f.hooks, transport, bus.Wrap(orderPlaced{ID: 2}, stale))
	require.NoError(t, err)

	queued := transport.Queued()
	require.Len(t, queued, 1)
	stamps := bus.All[*bus.TraceContextStamp](queued[0])
	require.Len(t, stamps, 1)
	assert.NotEqual(t, stale.Headers["traceparent"], stamps[0].Headers["traceparent"])
	assert.Contains(t, stamps[0].Headers["traceparent"], root.SpanContext().TraceID().String())
}

func TestConsumeErrorAndLogFlag(t *testing.T) {
	f := newFixture(t, Config{})
	log := logger.NewFromZap(zap.NewNop(), false)
	f.inst.CorrelateLogs(log)

	transport := bus.NewInMemoryTransport()
	b := newOrdersBus(f, func(ctx context.Context, msg orderPlaced) (any, error) {
		if msg.ID == 1 {
			log.ErrorWithContext(ctx, "payment missing", errBoom)
			return nil, errBoom
		}
		return nil, nil
	})
	w := bus.NewWorker(bus.WorkerConfig{}, b, nil, f.hooks, nil)

	err := w.Process(context.Background(), "memory", transport, bus.Wrap(orderPlaced{ID: 1}))
	require.ErrorIs(t, err, errBoom)
	require.NoError(t, w.Process(context.Background(), "memory", transport, bus.Wrap(orderPlaced{ID: 2})))

	ended := f.rec.Ended()
	require.Len(t, ended, 2)
	failed, ok := ended[0], ended[1]

	assert.Equal(t, "Consume instrumentation.orderPlaced", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, errBoom.Error(), failed.Status().Description)
	assert.Len(t, failed.Events(), 1)
	assert.True(t, spanAttrs(failed)[correlator.Attribute].AsBool())

	assert.Equal(t, codes.Unset, ok.Status().Code)
	assert.False(t, spanAttrs(ok)[correlator.Attribute].AsBool())
	assert.Len(t, transport.Rejected(), 1)
}

func TestRoutableBusIsNotTraced(t *testing.T) {
	f := newFixture(t, Config{})
	b := newOrdersBus(f, func(ctx context.Context, msg orderPlaced) (any, error) { return nil, nil })
	router := bus.NewRoutableBus("orders", map[string]bus.Bus{"orders": b}, f.hooks)

	ctx, root := f.rootContext("router")
	_, err := router.Dispatch(ctx, orderPlaced{ID: 3})
	require.NoError(t, err)
	root.End()

	var names []string
	for _, s := range f.rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"Dispatch instrumentation.orderPlaced", "router"}, names)
}

func TestSkippedReceiversAreNotTraced(t *testing.T) {
	cases := map[string]func(f *fixture){
		"skip types": func(f *fixture) {},
		"predicate": func(f *fixture) {
			f.inst.WithSkip(func(receiver any) bool {
				_, ok := receiver.(*bus.MessageBus)
				return ok
			})
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Config{}
			if name == "skip types" {
				cfg.Messenger.SkipTypes = []string{"bus.MessageBus"}
			}
			f := newFixture(t, cfg)
			setup(f)
			b := newOrdersBus(f, func(ctx context.Context, msg orderPlaced) (any, error) { return nil, nil })

			_, err := b.Dispatch(context.Background(), orderPlaced{ID: 4})
			require.NoError(t, err)
			assert.Empty(t, f.rec.Started())
		})
	}
}

// relaySender forwards to a transport and opts out of tracing.
type relaySender struct {
	next bus.Sender
}

func (s relaySender) Send(ctx context.Context, env *bus.Envelope) (*bus.Envelope, error) {
	return s.next.Send(ctx, env)
}

func (relaySender) Traceable() bool { return false }

func TestSkippedSendersAreNotTraced(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		skip   func(receiver any) bool
		sender func(transport *bus.InMemoryTransport) bus.Sender
	}{
		{
			name:   "not traceable",
			sender: func(tr *bus.InMemoryTransport) bus.Sender { return relaySender{next: tr} },
		},
		{
			name:   "skip types",
			cfg:    Config{Messenger: MessengerConfig{SkipTypes: []string{"bus.InMemoryTransport"}}},
			sender: func(tr *bus.InMemoryTransport) bus.Sender { return tr },
		},
		{
			name: "predicate",
			skip: func(receiver any) bool {
				_, ok := receiver.(*bus.InMemoryTransport)
				return ok
			},
			sender: func(tr *bus.InMemoryTransport) bus.Sender { return tr },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.cfg)
			if tc.skip != nil {
				f.inst.WithSkip(tc.skip)
			}
			transport := bus.NewInMemoryTransport()
			ctx := f.hooks.BeginUnit(context.Background())

			_, err := bus.Send(ctx, f.hooks, tc.sender(transport), bus.Wrap(orderPlaced{ID: 5}))
			require.NoError(t, err)

			assert.Len(t, transport.Queued(), 1)
			assert.Empty(t, f.rec.Started())
			assert.Empty(t, bus.All[*bus.TraceContextStamp](transport.Queued()[0]))
		})
	}
}
