// Package bus is a message bus with pluggable transports.
//
// Messages are wrapped in immutable envelopes carrying typed stamps. A
// MessageBus either hands an envelope to its registered handlers or, when the
// message type is routed, to one or more senders. A Worker fetches envelopes
// from receivers and dispatches them again, now marked with a ReceivedStamp,
// so they reach their handlers.
//
//	b := bus.NewMessageBus("default", hooks)
//	bus.Handle(b, "place-order", func(ctx context.Context, cmd PlaceOrder) (any, error) {
//		return nil, orders.Place(ctx, cmd)
//	})
//	b.AddSender("amqp", amqpTransport)
//	b.Route(bus.TypeName(PlaceOrder{}), "amqp")
//
//	// producer side: goes to the transport
//	_, err := b.Dispatch(ctx, PlaceOrder{ID: "42"})
//
//	// consumer side
//	w := bus.NewWorker(cfg, b, []bus.NamedReceiver{{Name: "amqp", Receiver: amqpTransport}}, hooks, log)
//	go w.Run(ctx)
//
// Bus.Dispatch and Sender.Send run through the hook registry (HookBusClass,
// HookSenderClass). Components that only forward work declare it by
// implementing Traceable.
package bus
