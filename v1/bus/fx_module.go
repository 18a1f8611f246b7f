package bus

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// FXModule provides the default *MessageBus (also as Bus), a *Serializer and
// a *Worker consuming every receiver in the "bus_receivers" group.
//
// Transports join the worker by providing a NamedReceiver into the group:
//
//	fx.Provide(fx.Annotate(
//		func(t *amqptransport.Transport) bus.NamedReceiver { return bus.NamedReceiver{Name: "amqp", Receiver: t} },
//		fx.ResultTags(`group:"bus_receivers"`),
//	))
var FXModule = fx.Module("bus",
	fx.Provide(
		NewMessageBusWithDI,
		fx.Annotate(
			func(b *MessageBus) Bus { return b },
			fx.As(new(Bus)),
		),
		NewSerializer,
		NewWorkerWithDI,
	),
	fx.Invoke(RegisterWorkerLifecycle),
)

// BusParams groups the bus dependencies.
type BusParams struct {
	fx.In

	Config Config
	Hooks  *hook.Registry `optional:"true"`
}

// NewMessageBusWithDI creates the default bus.
func NewMessageBusWithDI(params BusParams) *MessageBus {
	return NewMessageBus(params.Config.Name, params.Hooks)
}

// WorkerParams groups the worker dependencies.
type WorkerParams struct {
	fx.In

	Config    Config
	Bus       Bus
	Receivers []NamedReceiver `group:"bus_receivers"`
	Hooks     *hook.Registry  `optional:"true"`
	Logger    Logger          `optional:"true"`
}

// NewWorkerWithDI creates the worker.
func NewWorkerWithDI(params WorkerParams) *Worker {
	return NewWorker(params.Config.Worker, params.Bus, params.Receivers, params.Hooks, params.Logger)
}

// RegisterWorkerLifecycle runs the worker between start and stop.
func RegisterWorkerLifecycle(lc fx.Lifecycle, w *Worker) {
	if len(w.receivers) == 0 {
		return
	}
	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc
	)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
