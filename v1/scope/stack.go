package scope

import (
	"context"
	"sync"
)

type stackKey struct{}

// Stack is the current-context pointer of one unit of work together with the
// chain of scopes that produced it. It is safe for concurrent use by the
// goroutines a unit fans out to.
type Stack struct {
	mu    sync.Mutex
	top   *Scope
	depth int
}

// Scope is the handle returned by Attach. It restores the previously current
// context when detached.
type Scope struct {
	stack    *Stack
	ctx      context.Context
	prev     *Scope
	detached bool
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// WithStack returns a child of ctx carrying a new, empty stack.
func WithStack(ctx context.Context) context.Context {
	return context.WithValue(ctx, stackKey{}, New())
}

// FromContext returns the stack installed by WithStack, or nil.
func FromContext(ctx context.Context) *Stack {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(stackKey{}).(*Stack)
	return s
}

// Attach makes ctx the current context and returns the scope that undoes it.
func (s *Stack) Attach(ctx context.Context) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := &Scope{stack: s, ctx: ctx, prev: s.top}
	s.top = sc
	s.depth++
	return sc
}

// Current returns the current context, or nil when nothing is attached.
func (s *Stack) Current() context.Context {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.top == nil {
		return nil
	}
	return s.top.ctx
}

// Scope returns the most recently attached open scope, or nil.
func (s *Stack) Scope() *Scope {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// Context returns the context this scope attached.
func (sc *Scope) Context() context.Context {
	return sc.ctx
}

// Detach restores the context that was current before this scope was
// attached.
func (sc *Scope) Detach() error {
	s := sc.stack
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.detached {
		return ErrDetached
	}
	if s.top != sc {
		return ErrOutOfOrder
	}
	sc.detached = true
	s.top = sc.prev
	s.depth--
	return nil
}
