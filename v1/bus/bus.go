package bus

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

const (
	// HookBusClass is the hook class of Bus.Dispatch. Args: *Envelope.
	HookBusClass = "bus.Bus"

	// HookSenderClass is the hook class of Sender.Send. Args: *Envelope.
	HookSenderClass = "bus.Sender"

	OpDispatch = "Dispatch"
	OpSend     = "Send"
)

// Bus dispatches messages to their handlers or senders.
type Bus interface {
	Dispatch(ctx context.Context, msg any, stamps ...Stamp) (*Envelope, error)
}

// Sender hands an envelope to a transport.
type Sender interface {
	Send(ctx context.Context, env *Envelope) (*Envelope, error)
}

// Receiver fetches envelopes from a transport.
type Receiver interface {
	// Get returns the envelopes currently available. It returns an empty
	// slice when there are none.
	Get(ctx context.Context) ([]*Envelope, error)
	Ack(ctx context.Context, env *Envelope) error
	Reject(ctx context.Context, env *Envelope) error
}

// Transport both sends and receives.
type Transport interface {
	Sender
	Receiver
}

// Traceable is implemented by components that declare whether their
// operations should be traced. Components that only forward to another
// traced component return false.
type Traceable interface {
	Traceable() bool
}

// Handler handles one message.
type Handler func(ctx context.Context, msg any) (any, error)

type namedHandler struct {
	name string
	fn   Handler
}

// MessageBus dispatches envelopes to the handlers registered for their message
// type, or to the senders the type is routed to. Envelopes carrying a
// ReceivedStamp are always handled locally.
type MessageBus struct {
	name  string
	hooks *hook.Registry

	mu       sync.RWMutex
	handlers map[string][]namedHandler
	routes   map[string][]string
	senders  map[string]Sender
}

// NewMessageBus creates a bus. hooks may be nil.
func NewMessageBus(name string, hooks *hook.Registry) *MessageBus {
	return &MessageBus{
		name:     name,
		hooks:    hooks,
		handlers: make(map[string][]namedHandler),
		routes:   make(map[string][]string),
		senders:  make(map[string]Sender),
	}
}

// Name returns the bus name.
func (b *MessageBus) Name() string {
	return b.name
}

// Handle registers fn for messages of type T.
func Handle[T any](b *MessageBus, name string, fn func(ctx context.Context, msg T) (any, error)) {
	var zero T
	b.HandleType(TypeName(zero), name, func(ctx context.Context, msg any) (any, error) {
		return fn(ctx, msg.(T))
	})
}

// HandleType registers fn for messages whose TypeName is msgType.
func (b *MessageBus) HandleType(msgType, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[msgType] = append(b.handlers[msgType], namedHandler{name: name, fn: fn})
}

// AddSender registers a sender under name. Sends through it are hookable.
func (b *MessageBus) AddSender(name string, s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.senders[name] = &hookedSender{name: name, sender: s, hooks: b.hooks}
}

// Route sends messages whose TypeName is msgType to the named senders
// instead of handling them.
func (b *MessageBus) Route(msgType string, senders ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[msgType] = append(b.routes[msgType], senders...)
}

// Dispatch wraps msg with stamps and dispatches it.
func (b *MessageBus) Dispatch(ctx context.Context, msg any, stamps ...Stamp) (*Envelope, error) {
	env := Wrap(msg, stamps...)
	res, err := b.hooks.Invoke(ctx, hook.Call{
		Receiver: b,
		Args:     []any{env},
		Class:    HookBusClass,
		Function: OpDispatch,
	}, func(ctx context.Context, args []any) (any, error) {
		env, ok := args[0].(*Envelope)
		if !ok {
			return nil, ErrNotEnvelope
		}
		return b.dispatch(ctx, env)
	})
	out, _ := res.(*Envelope)
	return out, err
}

func (b *MessageBus) dispatch(ctx context.Context, env *Envelope) (*Envelope, error) {
	msgType := env.MessageType()

	b.mu.RLock()
	routes := b.routes[msgType]
	handlers := b.handlers[msgType]
	b.mu.RUnlock()

	if !Has[ReceivedStamp](env) && len(routes) > 0 {
		for _, name := range routes {
			b.mu.RLock()
			s, ok := b.senders[name]
			b.mu.RUnlock()
			if !ok {
				continue
			}
			sent, err := s.Send(ctx, env)
			if err != nil {
				return env, err
			}
			env = sent.With(SentStamp{Sender: name})
		}
		return env, nil
	}

	if len(handlers) == 0 {
		return env, ErrNoHandler
	}
	for _, h := range handlers {
		res, err := h.fn(ctx, env.Message())
		if err != nil {
			return env, err
		}
		env = env.With(HandledStamp{Handler: h.name, Result: res})
	}
	return env, nil
}

// hookedSender routes Send through the hook registry with the wrapped sender
// as receiver.
type hookedSender struct {
	name   string
	sender Sender
	hooks  *hook.Registry
}

func (s *hookedSender) Send(ctx context.Context, env *Envelope) (*Envelope, error) {
	return Send(ctx, s.hooks, s.sender, env)
}

// Send hands env to sender through the hook registry.
func Send(ctx context.Context, hooks *hook.Registry, sender Sender, env *Envelope) (*Envelope, error) {
	res, err := hooks.Invoke(ctx, hook.Call{
		Receiver: sender,
		Args:     []any{env},
		Class:    HookSenderClass,
		Function: OpSend,
	}, func(ctx context.Context, args []any) (any, error) {
		env, ok := args[0].(*Envelope)
		if !ok {
			return nil, ErrNotEnvelope
		}
		return sender.Send(ctx, env)
	})
	out, _ := res.(*Envelope)
	if out == nil {
		out = env
	}
	return out, err
}
