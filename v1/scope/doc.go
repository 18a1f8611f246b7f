// Package scope keeps the stack of active contexts for one unit of work.
//
// Go passes context.Context explicitly, and instrumented code relies on that
// first. The stack complements it for exit actions that run after the
// operation returned and only see the context the operation was called with,
// such as the termination phase of an HTTP request, which must find the
// request span opened during handling.
//
// A Stack is created per unit of work (one HTTP request, one consumed
// message) and stored in that unit's context with WithStack. Goroutines
// started by the unit share it; its methods are safe for concurrent use, but
// only code that has no span in its own context should attach to it.
//
//	ctx = scope.WithStack(ctx)
//	st := scope.FromContext(ctx)
//
//	sc := st.Attach(spanCtx)
//	defer sc.Detach()
//
// Scopes must be detached in reverse order of attachment. Detach refuses an
// out-of-order or repeated call and leaves the stack untouched.
package scope
