// Package propagation adapts the framework carriers to OpenTelemetry
// propagators.
//
// A propagator reads and writes trace context through a
// propagation.TextMapCarrier. The carriers of the framework are requests,
// responses, envelopes and stamps, so this package defines two small views,
// Getter and Setter, one implementation per carrier type, and Extractor and
// Injector to bind a view to a concrete carrier:
//
//	ctx = prop.Extract(ctx, propagation.Extractor(propagation.RequestGetter{}, req))
//	prop.Inject(ctx, propagation.Injector(propagation.ResponseSetter{}, resp))
//
// Passing a carrier of the wrong type to a view is a programming error and
// panics with an error wrapping ErrCarrierType.
//
// TraceResponse and ServerTiming are inject-only propagators that expose the
// server span to the client in the traceresponse and server-timing response
// headers.
package propagation
