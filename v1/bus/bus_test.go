package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

type PlaceOrder struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

func TestEnvelopeStamps(t *testing.T) {
	env := Wrap(PlaceOrder{ID: "1"}, SentStamp{Sender: "a"})
	withB := env.With(SentStamp{Sender: "b"}, ReceivedStamp{Transport: "amqp"})

	assert.False(t, Has[ReceivedStamp](env), "With must not mutate the original")
	assert.True(t, Has[ReceivedStamp](withB))

	last, ok := Last[SentStamp](withB)
	require.True(t, ok)
	assert.Equal(t, "b", last.Sender)
	assert.Len(t, All[SentStamp](withB), 2)
	assert.Len(t, withB.Stamps(), 3)

	without := withB.WithoutAll(SentStamp{})
	assert.Empty(t, All[SentStamp](without))
	assert.Len(t, All[SentStamp](withB), 2)

	assert.Equal(t, "bus.PlaceOrder", env.MessageType())
	assert.Equal(t, "bus.PlaceOrder", Wrap(&PlaceOrder{}).MessageType())
}

func TestWrapEnvelopeAddsStamps(t *testing.T) {
	env := Wrap(PlaceOrder{ID: "1"})
	again := Wrap(env, ReceivedStamp{Transport: "x"})

	assert.Equal(t, env.Message(), again.Message())
	assert.True(t, Has[ReceivedStamp](again))
}

func TestDispatchToHandlers(t *testing.T) {
	b := NewMessageBus("default", nil)
	var got PlaceOrder
	Handle(b, "orders", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		got = cmd
		return "placed", nil
	})

	env, err := b.Dispatch(context.Background(), PlaceOrder{ID: "7"})

	require.NoError(t, err)
	assert.Equal(t, "7", got.ID)
	handled, ok := Last[HandledStamp](env)
	require.True(t, ok)
	assert.Equal(t, "orders", handled.Handler)
	assert.Equal(t, "placed", handled.Result)
}

func TestDispatchWithoutHandler(t *testing.T) {
	b := NewMessageBus("default", nil)
	_, err := b.Dispatch(context.Background(), PlaceOrder{})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestHandlerErrorIsReturned(t *testing.T) {
	b := NewMessageBus("default", nil)
	boom := errors.New("boom")
	Handle(b, "orders", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		return nil, boom
	})
	_, err := b.Dispatch(context.Background(), PlaceOrder{})
	assert.ErrorIs(t, err, boom)
}

func TestRoutedMessageIsSentThenConsumed(t *testing.T) {
	hooks := hook.NewRegistry(nil)
	var sendReceivers []any
	hooks.Register(HookSenderClass, OpSend, func(ctx context.Context, call hook.Call) hook.Entry {
		sendReceivers = append(sendReceivers, call.Receiver)
		return hook.Entry{}
	}, nil)

	transport := NewInMemoryTransport()
	b := NewMessageBus("default", hooks)
	b.AddSender("memory", transport)
	b.Route(TypeName(PlaceOrder{}), "memory")

	handled := 0
	Handle(b, "orders", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		handled++
		return nil, nil
	})

	env, err := b.Dispatch(context.Background(), PlaceOrder{ID: "9"})
	require.NoError(t, err)
	assert.Equal(t, 0, handled)
	assert.True(t, Has[SentStamp](env))
	assert.True(t, Has[TransportMessageIDStamp](env))
	require.Len(t, sendReceivers, 1)
	assert.Same(t, transport, sendReceivers[0])

	queued, err := transport.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, queued, 1)

	w := NewWorker(WorkerConfig{}, b, nil, hooks, nil)
	require.NoError(t, w.Process(context.Background(), "memory", transport, queued[0]))

	assert.Equal(t, 1, handled)
	assert.Len(t, transport.Acked(), 1)
	assert.Empty(t, transport.Rejected())
}

func TestWorkerRejectsOnError(t *testing.T) {
	transport := NewInMemoryTransport()
	b := NewMessageBus("default", nil)
	Handle(b, "orders", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		return nil, errors.New("out of stock")
	})

	err := NewWorker(WorkerConfig{}, b, nil, nil, nil).Process(context.Background(), "memory", transport, Wrap(PlaceOrder{}))

	assert.Error(t, err)
	assert.Len(t, transport.Rejected(), 1)
	assert.Empty(t, transport.Acked())
}

func TestWorkerProcessBeginsUnit(t *testing.T) {
	hooks := hook.NewRegistry(nil)
	units := 0
	hooks.OnUnit(func(ctx context.Context) context.Context {
		units++
		return ctx
	})
	b := NewMessageBus("default", hooks)
	Handle(b, "orders", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		return nil, nil
	})
	w := NewWorker(WorkerConfig{}, b, nil, hooks, nil)
	transport := NewInMemoryTransport()

	parent := hooks.BeginUnit(context.Background())
	require.NoError(t, w.Process(parent, "memory", transport, Wrap(PlaceOrder{})))
	require.NoError(t, w.Process(parent, "memory", transport, Wrap(PlaceOrder{})))

	assert.Equal(t, 3, units)
}

func TestRoutableBus(t *testing.T) {
	hooks := hook.NewRegistry(nil)
	var receivers []any
	hooks.Register(HookBusClass, OpDispatch, func(ctx context.Context, call hook.Call) hook.Entry {
		receivers = append(receivers, call.Receiver)
		return hook.Entry{}
	}, nil)

	events := NewMessageBus("events", hooks)
	Handle(events, "audit", func(ctx context.Context, cmd PlaceOrder) (any, error) {
		return nil, nil
	})
	r := NewRoutableBus("commands", map[string]Bus{"events": events}, hooks)

	_, err := r.Dispatch(context.Background(), PlaceOrder{}, BusNameStamp{Name: "events"})
	require.NoError(t, err)
	require.Len(t, receivers, 2)
	assert.Same(t, r, receivers[0])
	assert.Same(t, events, receivers[1])
	assert.False(t, r.Traceable())

	_, err = r.Dispatch(context.Background(), PlaceOrder{})
	assert.ErrorIs(t, err, ErrUnknownBus)
}

func TestSerializerJSON(t *testing.T) {
	s := NewSerializer()
	Register[PlaceOrder](s)

	tc := NewTraceContextStamp()
	tc.Headers["traceparent"] = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	env := Wrap(PlaceOrder{ID: "3", Total: 12}, tc, BusNameStamp{Name: "events"})

	body, headers, err := s.Encode(env)
	require.NoError(t, err)
	assert.Equal(t, "bus.PlaceOrder", headers[HeaderType])
	assert.Equal(t, ContentTypeJSON, headers[HeaderContentType])
	assert.JSONEq(t, `{"id":"3","total":12}`, string(body))

	decoded, err := s.Decode(body, headers)
	require.NoError(t, err)
	assert.Equal(t, PlaceOrder{ID: "3", Total: 12}, decoded.Message())
	gotTC, ok := Last[*TraceContextStamp](decoded)
	require.True(t, ok)
	assert.Equal(t, tc.Headers, gotTC.Headers)
	name, ok := Last[BusNameStamp](decoded)
	require.True(t, ok)
	assert.Equal(t, "events", name.Name)
}

func TestSerializerProtobuf(t *testing.T) {
	s := NewSerializer()
	body, headers, err := s.Encode(Wrap(wrapperspb.String("hello")))
	require.NoError(t, err)
	assert.Equal(t, "google.protobuf.StringValue", headers[HeaderType])

	decoded, err := s.Decode(body, headers)
	require.NoError(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("hello"), decoded.Message().(proto.Message)))
	assert.False(t, Has[*TraceContextStamp](decoded))
}

func TestSerializerUnknownType(t *testing.T) {
	s := NewSerializer()
	_, err := s.Decode([]byte(`{}`), map[string]string{HeaderType: "nope.Nope"})
	assert.ErrorIs(t, err, ErrUnknownType)
}
