// Package kafkatransport carries bus envelopes over Kafka.
//
// Envelopes are encoded by bus.Serializer; the serializer headers, the trace
// context included, become Kafka record headers. Consumers join a consumer
// group and commit offsets explicitly once the worker acknowledged a message,
// so an unhandled message is fetched again after a restart.
//
// Basic usage:
//
//	t, err := kafkatransport.NewTransport(kafkatransport.Config{
//	    Brokers:    []string{"localhost:9092"},
//	    Topic:      "orders",
//	    GroupID:    "order-service",
//	    IsConsumer: true,
//	}, bus.NewSerializer(), log)
//
//	b.AddSender("kafka", t)
//	b.Route("orders.Created", "kafka")
//
// TLS and SASL (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512) are configured through
// Config.TLS and Config.SASL.
package kafkatransport
