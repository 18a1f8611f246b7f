// Package amqptransport carries bus envelopes over RabbitMQ.
//
// Send publishes the serialized envelope to the configured exchange with
// publisher confirms; propagation headers travel as AMQP message headers. Get
// polls the configured queue (basic.get) so the bus worker controls the pace,
// Ack acknowledges and Reject dead letters a delivery.
//
// The connection is re-established by RetryConnection when the broker closes
// it. With fx, FXModule wires all of this up:
//
//	app := fx.New(
//	    bus.FXModule,
//	    amqptransport.FXModule,
//	    fx.Provide(func() amqptransport.Config {
//	        return amqptransport.Config{
//	            Name:   "amqp",
//	            Routes: []string{"orders.PlaceOrder"},
//	            Connection: amqptransport.Connection{Host: "rabbit", Port: 5672, User: "guest", Password: "guest"},
//	            Channel: amqptransport.Channel{
//	                ExchangeName: "orders",
//	                ExchangeType: "direct",
//	                RoutingKey:   "orders",
//	                QueueName:    "orders",
//	                IsConsumer:   true,
//	            },
//	        }
//	    }),
//	)
package amqptransport
