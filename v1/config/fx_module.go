package config

import (
	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus/amqptransport"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus/kafkatransport"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/database"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/httpclient"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/instrumentation"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/kernel"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/logger"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/metrics"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/tracer"
)

// FXModule loads the configuration from the environment and provides every
// section to the package modules.
//
// Usage:
//
//	app := fx.New(
//	    config.FXModule,
//	    logger.FXModule,
//	    tracer.FXModule,
//	    hook.FXModule,
//	    instrumentation.FXModule,
//	)
var FXModule = fx.Module("config",
	fx.Provide(Load),
	sections,
)

// FileModule is FXModule with the YAML file at path overlaid on the
// environment.
func FileModule(path string) fx.Option {
	return fx.Module("config",
		fx.Provide(func() (*Config, error) { return LoadFile(path) }),
		sections,
	)
}

var sections = fx.Provide(
	func(c *Config) logger.Config { return c.Logger },
	func(c *Config) tracer.Config { return c.Tracer },
	func(c *Config) metrics.Config { return c.Metrics },
	func(c *Config) instrumentation.Config { return c.Instrumentation },
	func(c *Config) kernel.Config { return c.Kernel },
	func(c *Config) database.Config { return c.Database },
	func(c *Config) httpclient.Config { return c.HTTPClient },
	func(c *Config) bus.Config { return c.Bus },
	func(c *Config) amqptransport.Config { return c.AMQP },
	func(c *Config) kafkatransport.Config { return c.Kafka },
)
