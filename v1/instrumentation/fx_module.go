package instrumentation

import (
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

// FXModule provides the *Instrumentation and registers it on the hook
// registry when the application is built.
//
// Usage:
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    hook.FXModule,
//	    instrumentation.FXModule,
//	    fx.Provide(func() instrumentation.Config { return cfg }),
//	)
//
// Dependencies required by this module:
// - instrumentation.Config
// - *hook.Registry
// - trace.TracerProvider and propagation.TextMapPropagator (tracer.FXModule)
var FXModule = fx.Module("instrumentation",
	fx.Provide(NewInstrumentationWithDI),
	fx.Invoke(RegisterInstrumentation),
)

// InstrumentationParams groups the dependencies needed to create the
// instrumentation.
type InstrumentationParams struct {
	fx.In

	Config         Config
	Hooks          *hook.Registry
	TracerProvider trace.TracerProvider
	Propagator     propagation.TextMapPropagator `optional:"true"`
	Logger         Logger                        `optional:"true"`
	LevelHooker    LevelHooker                   `optional:"true"`
	Observer       observability.Observer        `optional:"true"`
}

func NewInstrumentationWithDI(params InstrumentationParams) *Instrumentation {
	i := New(params.Config, params.Hooks, params.TracerProvider, params.Propagator)
	if params.Logger != nil {
		i.WithLogger(params.Logger)
	}
	if params.Observer != nil {
		i.WithObserver(params.Observer)
	}
	if params.LevelHooker != nil {
		i.CorrelateLogs(params.LevelHooker)
	}
	return i
}

// RegisterInstrumentation installs the entry/exit pairs. Components created
// before this runs are traced as well, since the registry is consulted on
// every call.
func RegisterInstrumentation(i *Instrumentation) {
	i.Register()
}
