// Package httpclient provides a resty client whose requests are hookable.
//
// Every attempt of a request enters the HookClass/OpDo pairs from a resty
// request middleware and exits from the response middleware or the error
// hook, so instrumentation sees retries as separate operations. The entry
// actions receive a *Request whose Header is the live request header, which
// is how trace context reaches the wire.
//
//	client := httpclient.New(httpclient.Config{BaseURL: "https://billing"}, hooks)
//	resp, err := client.R(ctx).SetBody(invoice).Post("/invoices")
package httpclient
