// Package observability defines the hook that instrumented components use to
// report completed operations to an external sink (metrics, audit logs).
//
// Components accept an optional Observer and call ObserveOperation once per
// finished operation. A nil Observer means no notifications are sent.
package observability

import "time"

// Observer receives a notification for every finished operation.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one finished operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "instrumentation" or "amqp".
	Component string

	// Operation is the operation family, e.g. "http", "dispatch", "send".
	Operation string

	// Resource is the primary target, e.g. the final span name or a queue.
	Resource string

	// SubResource is an optional secondary target, e.g. a routing key.
	SubResource string

	Duration time.Duration

	// Error is the error returned by the wrapped operation, if any.
	Error error

	// Size is the payload size in bytes, or 0 when unknown.
	Size int64

	Metadata map[string]string
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}
