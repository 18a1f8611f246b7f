package kernel

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RequestType tells a request received from the network apart from one
// issued internally while handling another request.
type RequestType int

const (
	MainRequest RequestType = iota + 1
	SubRequest
)

func (t RequestType) String() string {
	switch t {
	case MainRequest:
		return "main"
	case SubRequest:
		return "sub"
	}
	return "unknown"
}

type requestKey struct{}

// Request is an HTTP request travelling through the kernel, together with
// the attributes routing and instrumentation attach to it.
type Request struct {
	HTTP *http.Request

	attributes map[string]any
}

// NewRequest wraps r.
func NewRequest(r *http.Request) *Request {
	return &Request{HTTP: r, attributes: make(map[string]any)}
}

// FromGin returns the kernel request a gin handler is serving, or nil when
// the engine was invoked outside the kernel.
func FromGin(c *gin.Context) *Request {
	return FromContext(c.Request.Context())
}

// FromContext returns the kernel request stored in ctx, or nil.
func FromContext(ctx context.Context) *Request {
	r, _ := ctx.Value(requestKey{}).(*Request)
	return r
}

// Method returns the request method.
func (r *Request) Method() string {
	return r.HTTP.Method
}

// Attribute returns the attribute stored under key.
func (r *Request) Attribute(key string) (any, bool) {
	v, ok := r.attributes[key]
	return v, ok
}

// AttributeString returns the attribute stored under key when it is a string.
func (r *Request) AttributeString(key string) string {
	s, _ := r.attributes[key].(string)
	return s
}

// SetAttribute stores v under key.
func (r *Request) SetAttribute(key string, v any) {
	r.attributes[key] = v
}

// RemoveAttribute deletes the attribute stored under key.
func (r *Request) RemoveAttribute(key string) {
	delete(r.attributes, key)
}

// URL returns the absolute request URL.
func (r *Request) URL() string {
	u := *r.HTTP.URL
	if u.Host == "" {
		u.Host = r.HTTP.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.HTTP.TLS != nil {
			u.Scheme = "https"
		}
	}
	if u.Host == "" {
		return u.RequestURI()
	}
	return u.String()
}

// BodySize returns the declared request body size, or -1 when unknown.
func (r *Request) BodySize() int64 {
	if v := r.HTTP.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if r.HTTP.ContentLength > 0 {
		return r.HTTP.ContentLength
	}
	return -1
}

// Protocol returns the protocol version, e.g. "1.1".
func (r *Request) Protocol() string {
	return fmt.Sprintf("%d.%d", r.HTTP.ProtoMajor, r.HTTP.ProtoMinor)
}
