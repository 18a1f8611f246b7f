package kafkatransport

import "errors"

var (
	// ErrNoDelivery is returned by Ack and Reject for envelopes that were not
	// fetched by this transport.
	ErrNoDelivery = errors.New("envelope was not received from kafka")

	// ErrNotConsumer is returned when a consumer operation is called on a
	// producer-only transport.
	ErrNotConsumer = errors.New("kafka transport is not a consumer")
)
