// Package instrumentation turns the hookable operations of the kernel, the
// message bus, database statements and the HTTP client into OpenTelemetry
// spans.
//
// Register installs two unit initializers on the hook registry, a span
// scope stack and a log flag, and one entry/exit pair per operation:
//
//   - kernel.Handle: a server span per main request, named after the method
//     and renamed to "<method> <route>" at termination. Incoming trace
//     context is extracted from the request headers. Sub-requests get an
//     internal child span named "<method> <controller>" that ends with the
//     sub-request. The span of a main request ends in kernel.Terminate.
//   - kernel.HandleError: records the error on the request span and sets
//     app.haslog.
//   - bus.Dispatch: "Dispatch <type>", or "Consume <type>" for envelopes
//     carrying a ReceivedStamp. Consume spans continue the trace found in the
//     envelope's TraceContextStamp.
//   - bus.Send: "Sender <type>". The span context is injected into a fresh
//     TraceContextStamp that replaces any existing one.
//   - database statements: "Statement execute" with the query text as
//     db.query. Failures are recorded as exceptions without touching the
//     status.
//   - httpclient.Do: a client span per attempt, with trace context injected
//     into the outgoing headers.
//
// Request and consume spans carry app.haslog, true when a warning or error
// was logged through a context-aware entry point of a logger passed to
// CorrelateLogs while the unit was running.
//
// Usage:
//
//	hooks := hook.NewRegistry(log)
//	inst := instrumentation.New(cfg, hooks, tr.Provider(), tr.Propagator()).
//		WithLogger(log).
//		WithObserver(m)
//	inst.CorrelateLogs(log)
//	inst.Register()
//
//	k := kernel.New(kernelCfg, hooks, log)
//
// Components created with the same registry are traced from then on.
package instrumentation
