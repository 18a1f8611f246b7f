package hook

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

type target struct {
	class    string
	function string
}

type registration struct {
	pre  PreFunc
	post PostFunc
}

type unitKey struct{}

// Registry holds the entry/exit pairs and the unit initializers.
// A nil *Registry runs operations without any hooks.
type Registry struct {
	mu     sync.RWMutex
	pairs  map[target][]registration
	units  []func(context.Context) context.Context
	logger Logger
}

// NewRegistry returns an empty registry. logger may be nil.
func NewRegistry(logger Logger) *Registry {
	return &Registry{
		pairs:  make(map[target][]registration),
		logger: logger,
	}
}

// Register adds an entry/exit pair for class.function. Either action may be nil.
func (r *Registry) Register(class, function string, pre PreFunc, post PostFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := target{class: class, function: function}
	r.pairs[t] = append(r.pairs[t], registration{pre: pre, post: post})
}

// Registered reports whether at least one pair is registered for class.function.
func (r *Registry) Registered(class, function string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs[target{class: class, function: function}]) > 0
}

// OnUnit registers fn to initialize the context of every new unit of work.
func (r *Registry) OnUnit(fn func(context.Context) context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, fn)
}

// BeginUnit starts a new unit of work derived from ctx, even when ctx already
// belongs to one.
func (r *Registry) BeginUnit(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, unitKey{}, true)
	if r == nil {
		return ctx
	}
	r.mu.RLock()
	units := r.units
	r.mu.RUnlock()
	for _, fn := range units {
		ctx = fn(ctx)
	}
	return ctx
}

// InUnit reports whether ctx belongs to a unit of work.
func InUnit(ctx context.Context) bool {
	v, _ := ctx.Value(unitKey{}).(bool)
	return v
}

// Invoke runs op wrapped by the pairs registered for call.Class and
// call.Function. The operation's result and error are returned unchanged; a
// panic in op is re-raised after the exit actions ran.
func (r *Registry) Invoke(ctx context.Context, call Call, op Operation) (result any, err error) {
	if r == nil {
		return op(ctx, call.Args)
	}
	ctx, inv := r.enter(ctx, call, 2)
	defer func() {
		if rec := recover(); rec != nil {
			inv.Exit(nil, &PanicError{Value: rec})
			panic(rec)
		}
		inv.Exit(result, err)
	}()
	return op(ctx, inv.Args())
}

// Enter runs the entry actions for call and returns the context the operation
// should use. The caller must call Exit on the returned invocation exactly
// when the operation finished.
func (r *Registry) Enter(ctx context.Context, call Call) (context.Context, *Invocation) {
	if r == nil {
		return ctx, &Invocation{args: call.Args}
	}
	return r.enter(ctx, call, 2)
}

func (r *Registry) enter(ctx context.Context, call Call, skip int) (context.Context, *Invocation) {
	if !InUnit(ctx) {
		ctx = r.BeginUnit(ctx)
	}
	if call.File == "" {
		if _, file, line, ok := runtime.Caller(skip); ok {
			call.File, call.Line = file, line
		}
	}

	r.mu.RLock()
	regs := r.pairs[target{class: call.Class, function: call.Function}]
	r.mu.RUnlock()

	inv := &Invocation{
		registry: r,
		ctx:      ctx,
		call:     call,
		args:     call.Args,
		regs:     regs,
		handles:  make([]any, len(regs)),
	}

	cur := ctx
	for i, reg := range regs {
		if reg.pre == nil {
			continue
		}
		c := call
		c.Args = inv.args
		e := r.runPre(cur, c, reg.pre)
		if e.Context != nil {
			cur = e.Context
		}
		if e.Args != nil {
			inv.args = e.Args
		}
		inv.handles[i] = e.Handle
	}
	return cur, inv
}

func (r *Registry) runPre(ctx context.Context, call Call, pre PreFunc) (e Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			r.warn("hook entry action failed", call, rec)
			e = Entry{}
		}
	}()
	return pre(ctx, call)
}

func (r *Registry) runPost(ctx context.Context, call Call, post PostFunc, handle, result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.warn("hook exit action failed", call, rec)
		}
	}()
	post(ctx, call, handle, result, err)
}

func (r *Registry) warn(msg string, call Call, rec any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, fmt.Errorf("%v", rec), map[string]interface{}{
		"class":    call.Class,
		"function": call.Function,
	})
}

// Invocation is one entered call awaiting its exit actions.
type Invocation struct {
	registry *Registry
	ctx      context.Context
	call     Call
	args     []any
	regs     []registration
	handles  []any
	done     atomic.Bool
}

// Args returns the argument list as replaced by the entry actions.
func (inv *Invocation) Args() []any {
	return inv.args
}

// Exit runs the exit actions in reverse registration order. Calls after the
// first are ignored.
func (inv *Invocation) Exit(result any, err error) {
	if inv == nil || inv.registry == nil || !inv.done.CompareAndSwap(false, true) {
		return
	}
	for i := len(inv.regs) - 1; i >= 0; i-- {
		post := inv.regs[i].post
		if post == nil {
			continue
		}
		inv.registry.runPost(inv.ctx, inv.call, post, inv.handles[i], result, err)
	}
}
