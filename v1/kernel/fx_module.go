package kernel

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// FXModule provides the *Kernel and serves it over HTTP for the lifetime of
// the application.
var FXModule = fx.Module("kernel",
	fx.Provide(NewKernelWithDI),
	fx.Invoke(RegisterKernelLifecycle),
)

// KernelParams groups the kernel dependencies.
type KernelParams struct {
	fx.In

	Config Config
	Hooks  *hook.Registry `optional:"true"`
	Logger Logger         `optional:"true"`
}

// NewKernelWithDI creates a kernel from fx dependencies.
func NewKernelWithDI(params KernelParams) *Kernel {
	return New(params.Config, params.Hooks, params.Logger)
}

// RegisterKernelLifecycle starts the HTTP server on start and shuts it down
// gracefully on stop.
func RegisterKernelLifecycle(lc fx.Lifecycle, k *Kernel) {
	server := k.Server()
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				k.logInfo(context.Background(), "starting HTTP server", nil, map[string]interface{}{
					"address": server.Addr,
				})
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					k.logError(context.Background(), "HTTP server stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}
