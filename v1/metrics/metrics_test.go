package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{Namespace: "test"})

	m.ObserveOperation(observability.OperationContext{
		Component: "instrumentation",
		Operation: "http.request",
		Duration:  20 * time.Millisecond,
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "instrumentation",
		Operation: "http.request",
		Error:     errors.New("boom"),
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "kafka",
		Operation: "produce",
		Size:      128,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("instrumentation", "http.request", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("instrumentation", "http.request", "error")))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.operationBytes.WithLabelValues("kafka", "produce")))

	n, err := testutil.GatherAndCount(m.Registry, "test_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestServiceLabelAndDefaults(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "checkout"})
	assert.Equal(t, DefaultMetricsAddress, m.Server.Addr)

	m.ObserveOperation(observability.OperationContext{Component: "amqp", Operation: "publish"})

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "operations_total" {
			continue
		}
		for _, l := range f.GetMetric()[0].GetLabel() {
			if l.GetName() == "service" {
				found = true
				assert.Equal(t, "checkout", l.GetValue())
			}
		}
	}
	assert.True(t, found)
}

func TestCreateCounter(t *testing.T) {
	m := NewMetrics(Config{})
	c := m.CreateCounter("orders_total", "orders", []string{"kind"})
	c.WithLabelValues("paid").Add(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.WithLabelValues("paid")))

	var _ MetricsCollector = m
	var _ observability.Observer = m
}
