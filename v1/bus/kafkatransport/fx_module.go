package kafkatransport

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

// FXModule provides the *Transport, registers it as a sender on the default
// bus and, for consumers, hands it to the bus worker as a receiver.
var FXModule = fx.Module("kafkatransport",
	fx.Provide(
		NewTransportWithDI,
		fx.Annotate(
			func(t *Transport) bus.NamedReceiver {
				return bus.NamedReceiver{Name: t.cfg.Name, Receiver: t}
			},
			fx.ResultTags(`group:"bus_receivers"`),
		),
	),
	fx.Invoke(RegisterSender, RegisterTransportLifecycle),
)

// TransportParams groups the transport dependencies.
type TransportParams struct {
	fx.In

	Config     Config
	Serializer *bus.Serializer
	Logger     Logger                 `optional:"true"`
	Observer   observability.Observer `optional:"true"`
}

func NewTransportWithDI(params TransportParams) (*Transport, error) {
	t, err := NewTransport(params.Config, params.Serializer, params.Logger)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		t.WithObserver(params.Observer)
	}
	return t, nil
}

// RegisterSender adds the transport as a sender of b and routes the
// configured message types to it.
func RegisterSender(b *bus.MessageBus, t *Transport) {
	b.AddSender(t.cfg.Name, t)
	for _, msgType := range t.cfg.Routes {
		b.Route(msgType, t.cfg.Name)
	}
}

// RegisterTransportLifecycle closes the writers and the reader on stop.
func RegisterTransportLifecycle(lc fx.Lifecycle, t *Transport) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := t.Close(); err != nil && t.logger != nil {
				t.logger.Error("failed to close kafka transport", err, nil)
			}
			return nil
		},
	})
}
