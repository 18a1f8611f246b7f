package hook

import (
	"context"
	"fmt"
)

// Call describes one invocation of a wrapped operation.
type Call struct {
	// Receiver is the component the operation was invoked on.
	Receiver any

	// Args are the operation arguments. Entry actions see the arguments as
	// replaced by earlier entry actions; exit actions see the originals.
	Args []any

	Class    string
	Function string

	// File and Line locate the wrapped operation. They are filled from the
	// caller of Invoke or Enter when left empty.
	File string
	Line int
}

// Arg returns the i-th argument, or nil when there is none.
func (c Call) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Entry is returned by an entry action.
type Entry struct {
	// Context replaces the context passed on to later entry actions and to
	// the operation. Nil keeps the incoming one.
	Context context.Context

	// Args replaces the argument list passed on. Nil keeps the incoming one.
	Args []any

	// Handle is handed back to the paired exit action.
	Handle any
}

// PreFunc is an entry action.
type PreFunc func(ctx context.Context, call Call) Entry

// PostFunc is an exit action. It receives the unit context as it was before
// any entry action ran, the handle its entry action returned, and the outcome
// of the operation.
type PostFunc func(ctx context.Context, call Call, handle any, result any, err error)

// Operation is the wrapped operation.
type Operation func(ctx context.Context, args []any) (any, error)

// PanicError is passed to exit actions when the operation panicked. The panic
// itself is re-raised after the exit actions ran.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Logger reports failures of entry and exit actions.
type Logger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}
