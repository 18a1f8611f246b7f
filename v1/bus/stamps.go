package bus

// ReceivedStamp marks an envelope that was received from a transport and is
// now being handled.
type ReceivedStamp struct {
	Transport string
}

// SentStamp records a sender the envelope was handed to.
type SentStamp struct {
	Sender string
}

// TransportMessageIDStamp carries the id a transport assigned to the message.
type TransportMessageIDStamp struct {
	ID string
}

// TraceContextStamp carries propagation headers across transports.
type TraceContextStamp struct {
	Headers map[string]string
}

// NewTraceContextStamp returns a stamp with an empty header map.
func NewTraceContextStamp() *TraceContextStamp {
	return &TraceContextStamp{Headers: make(map[string]string)}
}

// BusNameStamp selects the bus a RoutableBus forwards to.
type BusNameStamp struct {
	Name string
}

// HandledStamp records the result of a handler.
type HandledStamp struct {
	Handler string
	Result  any
}
