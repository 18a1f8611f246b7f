package amqptransport

import (
	"time"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
func (t *Transport) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if t.observer != nil {
		t.observer.ObserveOperation(observability.OperationContext{
			Component:   "amqp",
			Operation:   operation,
			Resource:    resource,
			SubResource: subResource,
			Duration:    duration,
			Error:       err,
			Size:        size,
		})
	}
}
