// Package hook wraps operations of framework components with paired entry and
// exit actions.
//
// A component that wants its operation to be observable routes the call
// through a Registry:
//
//	func (k *Kernel) Handle(ctx context.Context, req *Request, typ RequestType) (*Response, error) {
//		res, err := k.hooks.Invoke(ctx, hook.Call{
//			Receiver: k,
//			Args:     []any{req, typ},
//			Class:    HookClass,
//			Function: OpHandle,
//		}, func(ctx context.Context, args []any) (any, error) {
//			return k.handle(ctx, args[0].(*Request), args[1].(RequestType))
//		})
//		...
//	}
//
// Observers register a pair for the class and function they care about:
//
//	registry.Register(kernel.HookClass, kernel.OpHandle, pre, post)
//
// Guarantees:
//   - entry actions run in registration order, exit actions in reverse order
//   - every exit action runs exactly once per invocation whose entry ran, also
//     when the operation returns an error or panics
//   - nested invocations are paired independently
//   - a panicking entry or exit action is recovered and logged; the wrapped
//     operation and its result are never affected
//
// Host facilities that already expose before/after callbacks (database
// drivers, HTTP client middleware) use Enter and Invocation.Exit instead of
// Invoke.
//
// # Units of Work
//
// Per-unit state (the scope stack, the log flag) is installed by functions
// registered with OnUnit. BeginUnit runs them; Invoke and Enter call it
// implicitly when the context does not belong to a unit yet.
package hook
