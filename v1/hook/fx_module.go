package hook

import "go.uber.org/fx"

// FXModule provides the *Registry shared by instrumented components and the
// instrumentation that registers on it.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    hook.FXModule,
//	    instrumentation.FXModule,
//	)
var FXModule = fx.Module("hook",
	fx.Provide(NewRegistryWithDI),
)

// RegistryParams groups the dependencies needed to create the registry.
type RegistryParams struct {
	fx.In

	Logger Logger `optional:"true"`
}

func NewRegistryWithDI(params RegistryParams) *Registry {
	return NewRegistry(params.Logger)
}
