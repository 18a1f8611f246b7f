package kernel

import (
	"bytes"
	"net/http"
	"strconv"
)

// Response is a fully buffered response produced by the kernel.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Protocol is the protocol version the response is sent with, e.g. "1.1".
	Protocol string
}

// NewResponse returns a response with an empty header.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
		Protocol:   "1.1",
	}
}

// errorResponse returns the plain text response for a status code.
func errorResponse(status int) *Response {
	resp := NewResponse(status, []byte(http.StatusText(status)))
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return resp
}

// ContentLength returns the Content-Length header when set, else the body size.
func (r *Response) ContentLength() int {
	if v := r.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return len(r.Body)
}

// Send writes the response to w.
func (r *Response) Send(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = v
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}

// bufferWriter collects what the router writes.
type bufferWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferWriter() *bufferWriter {
	return &bufferWriter{header: make(http.Header)}
}

func (w *bufferWriter) Header() http.Header {
	return w.header
}

func (w *bufferWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *bufferWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferWriter) response(protocol string) *Response {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		StatusCode: status,
		Header:     w.header,
		Body:       w.body.Bytes(),
		Protocol:   protocol,
	}
}
