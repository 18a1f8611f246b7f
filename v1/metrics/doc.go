// Package metrics exposes Prometheus metrics for instrumented operations.
//
// *Metrics implements observability.Observer. Every operation reported by the
// instrumentation or a bus transport increments operations_total and records
// operation_duration_seconds, labelled by component, operation and status
// ("ok" or "error"). Payload sizes add to operation_bytes_total.
//
// The registry is isolated per Metrics instance and served at /metrics:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "shop"})
//	inst.WithObserver(m)
//	go m.Server.ListenAndServe()
//
// With EnableDefaultCollectors the Go runtime, process and build info
// collectors are registered as well. Further application metrics can be
// created with CreateCounter, CreateHistogram and CreateGauge.
//
// Configuration through the environment:
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=shop
//	METRICS_SERVICE_NAME=checkout
package metrics
