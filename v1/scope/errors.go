package scope

import "errors"

var (
	// ErrDetached is returned when a scope is detached a second time.
	ErrDetached = errors.New("scope: already detached")

	// ErrOutOfOrder is returned when a scope that is not on top of its
	// stack is detached.
	ErrOutOfOrder = errors.New("scope: detached out of order")
)
