package amqptransport

import "errors"

var (
	// ErrNoDelivery is returned when acknowledging an envelope that was not
	// fetched from this transport.
	ErrNoDelivery = errors.New("amqp: envelope has no delivery tag")

	// ErrNotConfirmed is returned when the broker nacked a publish.
	ErrNotConfirmed = errors.New("amqp: publish not confirmed by broker")

	// ErrNotConnected is returned when no channel is open.
	ErrNotConnected = errors.New("amqp: not connected")
)
