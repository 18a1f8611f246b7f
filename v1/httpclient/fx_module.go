package httpclient

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/hook"
)

// FXModule provides the traced *Client.
var FXModule = fx.Module("httpclient",
	fx.Provide(NewClientWithDI),
)

type ClientParams struct {
	fx.In

	Config Config
	Hooks  *hook.Registry `optional:"true"`
}

func NewClientWithDI(params ClientParams) *Client {
	return New(params.Config, params.Hooks)
}
