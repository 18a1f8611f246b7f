package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// errRetried ends the invocation of an attempt that is being retried.
var errRetried = errors.New("request attempt retried")

// Request describes an outgoing request. Header is the live header of the
// request; values set on it are sent.
type Request struct {
	Method string
	URL    string
	Header http.Header
}

// Response describes the response of an outgoing request.
type Response struct {
	StatusCode int
	Header     http.Header
	Size       int64
	Protocol   string
}

type attemptKey struct{}

// attempt is the entered invocation of one request attempt and the context
// the request was made with.
type attempt struct {
	parent context.Context
	inv    *hook.Invocation
}

// Client is a resty client whose requests run the Do hook pairs, one
// invocation per attempt.
type Client struct {
	resty *resty.Client
	hooks *hook.Registry
}

// New creates a client. hooks may be nil.
func New(cfg Config, hooks *hook.Registry) *Client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetRetryCount(cfg.RetryCount)
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryWaitTime > 0 {
		r.SetRetryWaitTime(cfg.RetryWaitTime)
	}
	if cfg.RetryMaxWaitTime > 0 {
		r.SetRetryMaxWaitTime(cfg.RetryMaxWaitTime)
	}
	if cfg.UserAgent != "" {
		r.SetHeader("User-Agent", cfg.UserAgent)
	}

	c := &Client{resty: r, hooks: hooks}
	r.OnBeforeRequest(c.before)
	r.OnAfterResponse(c.after)
	r.OnError(c.onError)
	return c
}

// R returns a new request bound to ctx.
func (c *Client) R(ctx context.Context) *resty.Request {
	return c.resty.R().SetContext(ctx)
}

// Resty returns the underlying client.
func (c *Client) Resty() *resty.Client {
	return c.resty
}

func (c *Client) before(rc *resty.Client, req *resty.Request) error {
	parent := req.Context()
	if prev, ok := parent.Value(attemptKey{}).(*attempt); ok {
		prev.inv.Exit(nil, errRetried)
		parent = prev.parent
	}

	ctx, inv := c.hooks.Enter(parent, hook.Call{
		Receiver: c,
		Args: []any{&Request{
			Method: req.Method,
			URL:    absoluteURL(rc.BaseURL, req.URL),
			Header: req.Header,
		}},
		Class:    HookClass,
		Function: OpDo,
	})
	req.SetContext(context.WithValue(ctx, attemptKey{}, &attempt{parent: parent, inv: inv}))
	return nil
}

func (c *Client) after(_ *resty.Client, resp *resty.Response) error {
	if a, ok := resp.Request.Context().Value(attemptKey{}).(*attempt); ok {
		a.inv.Exit(response(resp), nil)
	}
	return nil
}

func (c *Client) onError(req *resty.Request, err error) {
	a, ok := req.Context().Value(attemptKey{}).(*attempt)
	if !ok {
		return
	}
	var respErr *resty.ResponseError
	if errors.As(err, &respErr) {
		a.inv.Exit(response(respErr.Response), respErr.Err)
		return
	}
	a.inv.Exit(nil, err)
}

func response(resp *resty.Response) *Response {
	if resp == nil || resp.RawResponse == nil {
		return nil
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Size:       resp.Size(),
		Protocol:   strings.TrimPrefix(resp.Proto(), "HTTP/"),
	}
}

func absoluteURL(base, u string) string {
	if base == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}
