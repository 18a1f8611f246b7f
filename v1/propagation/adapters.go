package propagation

import (
	"net/http"
	"sort"
	"strings"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/kernel"
)

// RequestGetter reads the headers of a *kernel.Request.
type RequestGetter struct{}

func (RequestGetter) Keys(carrier any) []string {
	return headerKeys(request(carrier).HTTP.Header)
}

func (RequestGetter) Get(carrier any, key string) string {
	return request(carrier).HTTP.Header.Get(key)
}

func request(carrier any) *kernel.Request {
	req, ok := carrier.(*kernel.Request)
	if !ok || req == nil || req.HTTP == nil {
		panic(wrongCarrier(carrier, "*kernel.Request"))
	}
	return req
}

// ResponseSetter writes the headers of a *kernel.Response.
type ResponseSetter struct{}

func (ResponseSetter) Keys(carrier any) []string {
	return headerKeys(response(carrier).Header)
}

func (ResponseSetter) Set(carrier any, key, value string) {
	resp := response(carrier)
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(key, value)
}

func response(carrier any) *kernel.Response {
	resp, ok := carrier.(*kernel.Response)
	if !ok || resp == nil {
		panic(wrongCarrier(carrier, "*kernel.Response"))
	}
	return resp
}

// HeaderSetter writes to an http.Header, e.g. of an outgoing client request.
type HeaderSetter struct{}

func (HeaderSetter) Keys(carrier any) []string {
	return headerKeys(header(carrier))
}

func (HeaderSetter) Set(carrier any, key, value string) {
	header(carrier).Set(key, value)
}

func header(carrier any) http.Header {
	h, ok := carrier.(http.Header)
	if !ok || h == nil {
		panic(wrongCarrier(carrier, "http.Header"))
	}
	return h
}

// EnvelopeGetter reads the trace context stamp of a received *bus.Envelope.
// An envelope without the stamp has no fields.
type EnvelopeGetter struct{}

func (EnvelopeGetter) Keys(carrier any) []string {
	return mapKeys(envelopeHeaders(carrier))
}

func (EnvelopeGetter) Get(carrier any, key string) string {
	headers := envelopeHeaders(carrier)
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func envelopeHeaders(carrier any) map[string]string {
	env, ok := carrier.(*bus.Envelope)
	if !ok || env == nil {
		panic(wrongCarrier(carrier, "*bus.Envelope"))
	}
	tc, ok := bus.Last[*bus.TraceContextStamp](env)
	if !ok || tc == nil {
		return nil
	}
	return tc.Headers
}

// StampSetter writes to a *bus.TraceContextStamp.
type StampSetter struct{}

func (StampSetter) Keys(carrier any) []string {
	return mapKeys(stamp(carrier).Headers)
}

func (StampSetter) Set(carrier any, key, value string) {
	s := stamp(carrier)
	if s.Headers == nil {
		s.Headers = make(map[string]string)
	}
	s.Headers[key] = value
}

func stamp(carrier any) *bus.TraceContextStamp {
	s, ok := carrier.(*bus.TraceContextStamp)
	if !ok || s == nil {
		panic(wrongCarrier(carrier, "*bus.TraceContextStamp"))
	}
	return s
}

// headerKeys returns the lower-cased header names, sorted.
func headerKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	return keys
}

func mapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
