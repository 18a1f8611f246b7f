package database

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// FXModule provides the *Client and keeps its connection monitored while
// the application runs.
//
// Usage:
//
//	app := fx.New(
//	    hook.FXModule,
//	    database.FXModule,
//	    fx.Provide(func() database.Config { return cfg }),
//	)
var FXModule = fx.Module("database",
	fx.Provide(NewClientWithDI),
	fx.Invoke(RegisterDatabaseLifecycle),
)

// DatabaseParams groups the dependencies needed to create the client.
type DatabaseParams struct {
	fx.In

	Config Config
	Hooks  *hook.Registry `optional:"true"`
	Logger Logger         `optional:"true"`
}

func NewClientWithDI(params DatabaseParams) (*Client, error) {
	return NewClient(params.Config, params.Hooks, params.Logger)
}

// RegisterDatabaseLifecycle starts connection monitoring and reconnection
// on start and closes the pools on stop.
func RegisterDatabaseLifecycle(lc fx.Lifecycle, c *Client) {
	wg := &sync.WaitGroup{}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				c.MonitorConnection(context.Background())
			}()
			go func() {
				defer wg.Done()
				c.RetryConnection(context.Background())
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := c.GracefulShutdown()
			wg.Wait()
			return err
		},
	})
}
