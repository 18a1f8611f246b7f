package bus

import (
	"context"
	"fmt"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// RoutableBus forwards envelopes to the bus named by their BusNameStamp, or
// to the default bus. It does no work of its own and declares itself not
// traceable, so only the bus it forwards to shows up in traces.
type RoutableBus struct {
	hooks       *hook.Registry
	buses       map[string]Bus
	defaultName string
}

// NewRoutableBus creates a router with defaultName as fallback. hooks may be nil.
func NewRoutableBus(defaultName string, buses map[string]Bus, hooks *hook.Registry) *RoutableBus {
	return &RoutableBus{hooks: hooks, buses: buses, defaultName: defaultName}
}

// Traceable returns false.
func (r *RoutableBus) Traceable() bool {
	return false
}

// Dispatch forwards to the selected bus.
func (r *RoutableBus) Dispatch(ctx context.Context, msg any, stamps ...Stamp) (*Envelope, error) {
	env := Wrap(msg, stamps...)
	res, err := r.hooks.Invoke(ctx, hook.Call{
		Receiver: r,
		Args:     []any{env},
		Class:    HookBusClass,
		Function: OpDispatch,
	}, func(ctx context.Context, args []any) (any, error) {
		env, ok := args[0].(*Envelope)
		if !ok {
			return nil, ErrNotEnvelope
		}
		name := r.defaultName
		if s, ok := Last[BusNameStamp](env); ok {
			name = s.Name
		}
		b, ok := r.buses[name]
		if !ok {
			return env, fmt.Errorf("%w: %q", ErrUnknownBus, name)
		}
		return b.Dispatch(ctx, env)
	})
	out, _ := res.(*Envelope)
	return out, err
}
