package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer owns the SDK tracer provider and the text map propagator used at
// process boundaries.
type Tracer struct {
	tracer     *sdktrace.TracerProvider
	propagator propagation.TextMapPropagator
	logger     Logger
}

// NewClient builds the tracer provider and installs it, together with the
// propagator, as the otel globals.
//
// When cfg.EnableExport is set, spans are batched to an OTLP/HTTP exporter.
// Failure to create the exporter is fatal.
//
// Example:
//
//	tr := tracer.NewClient(tracer.Config{
//		ServiceName:  "checkout",
//		AppEnv:       "production",
//		EnableExport: true,
//	}, log)
//	defer tr.Shutdown(context.Background())
func NewClient(cfg Config, logger Logger) *Tracer {
	var options []sdktrace.TracerProviderOption

	if cfg.EnableExport {
		client := otlptracehttp.NewClient()
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			logger.Fatal("cannot initiate tracer", err, nil)
			return nil
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}

	options = append(options, sdktrace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	tp := sdktrace.NewTracerProvider(options...)
	t := NewWithProvider(tp, newPropagator(cfg), logger)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(t.propagator)

	return t
}

// NewWithProvider wraps an existing provider without touching the otel
// globals. Tests use it with an sdktrace.NewTracerProvider backed by a
// tracetest.SpanRecorder.
func NewWithProvider(tp *sdktrace.TracerProvider, propagator propagation.TextMapPropagator, logger Logger) *Tracer {
	if propagator == nil {
		propagator = propagation.TraceContext{}
	}
	return &Tracer{tracer: tp, propagator: propagator, logger: logger}
}

func newPropagator(cfg Config) propagation.TextMapPropagator {
	if cfg.Baggage {
		return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}
	return propagation.TraceContext{}
}

// Provider returns the tracer provider.
func (t *Tracer) Provider() trace.TracerProvider {
	return t.tracer
}

// Propagator returns the propagator used for inbound and outbound carriers.
func (t *Tracer) Propagator() propagation.TextMapPropagator {
	return t.propagator
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
