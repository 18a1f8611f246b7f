// Package tracer configures the OpenTelemetry SDK for the process.
//
// It builds the tracer provider (optionally exporting over OTLP/HTTP), picks
// the W3C trace context propagator (plus baggage when enabled) and exposes
// both to the rest of the application. The instrumentation package consumes
// them as trace.TracerProvider and propagation.TextMapPropagator; nothing in
// this module talks to the SDK globals directly.
//
// Basic Usage:
//
//	tr := tracer.NewClient(tracer.Config{
//		ServiceName:  "my-service",
//		AppEnv:       "development",
//		EnableExport: true,
//	}, log)
//
//	ctx, span := tr.StartSpan(ctx, "process-request")
//	defer span.End()
//
//	tr.SetAttributes(span, map[string]interface{}{
//		"request.id": "abc-xyz",
//	})
//
//	if err != nil {
//		tr.RecordErrorOnSpan(span, err)
//	}
//
// Distributed Tracing Across Services:
//
//	// In the sending service
//	headers := tr.GetCarrier(ctx)
//
//	// In the receiving service
//	ctx = tr.SetCarrierOnContext(ctx, headers)
//
// Testing:
//
//	rec := tracetest.NewSpanRecorder()
//	tr := tracer.NewWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)), nil, log)
package tracer
