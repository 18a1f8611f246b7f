package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// operationLabels are the labels of all operation metrics.
var operationLabels = []string{"component", "operation", "status"}

// Metrics owns a Prometheus registry, the HTTP server exposing it, and the
// operation metrics reported by instrumented components.
type Metrics struct {
	// Server serves the /metrics endpoint.
	Server *http.Server

	// Registry is the isolated registry all metrics are registered on.
	Registry *prometheus.Registry

	namespace  string
	registerer prometheus.Registerer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationBytes    *prometheus.CounterVec
}

// NewMetrics creates the registry, registers the operation metrics and, when
// enabled, the default collectors, and prepares the HTTP server.
func NewMetrics(cfg Config) *Metrics {
	if cfg.Address == "" {
		cfg.Address = DefaultMetricsAddress
	}

	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		// service="<name>" on every metric
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	m := &Metrics{
		Registry:   registry,
		namespace:  cfg.Namespace,
		registerer: registerer,
	}

	m.operationsTotal = m.counterVec("operations_total", "Total number of finished operations", operationLabels)
	m.operationDuration = m.histogramVec("operation_duration_seconds", "Duration of finished operations in seconds", operationLabels, prometheus.DefBuckets)
	m.operationBytes = m.counterVec("operation_bytes_total", "Payload bytes moved by finished operations", []string{"component", "operation"})

	registerer.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.operationBytes,
	)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	m.Server = &http.Server{
		Addr:    cfg.Address,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	return m
}
