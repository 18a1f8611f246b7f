package kernel

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoResponse is returned when a hook replaced the arguments of Handle with
// something the kernel cannot serve.
var ErrNoResponse = errors.New("kernel: no response")

// HTTPError is a controller error carrying the status code of the response it
// should produce.
type HTTPError struct {
	Status int
	Err    error
}

// NewHTTPError wraps err with status.
func NewHTTPError(status int, err error) *HTTPError {
	return &HTTPError{Status: status, Err: err}
}

func (e *HTTPError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return fmt.Sprintf("%d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusOf returns the status code an error maps to.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) && he.Status != 0 {
		return he.Status
	}
	return http.StatusInternalServerError
}
