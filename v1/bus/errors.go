package bus

import "errors"

var (
	// ErrNoHandler is returned when a message has neither a handler nor a
	// route to a sender.
	ErrNoHandler = errors.New("bus: no handler for message")

	// ErrUnknownBus is returned by RoutableBus for a bus name it does not know.
	ErrUnknownBus = errors.New("bus: unknown bus")

	// ErrUnknownType is returned when decoding a message of an unregistered type.
	ErrUnknownType = errors.New("bus: unknown message type")

	// ErrNotEnvelope is returned when a hook replaced the envelope argument
	// with something else.
	ErrNotEnvelope = errors.New("bus: argument is not an envelope")
)
