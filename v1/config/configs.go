package config

import (
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

// Config aggregates the settings of every package. Each section keeps the
// environment variable names of its package, e.g. ZAP_LOGGER_LEVEL or
// KAFKA_BROKERS.
type Config struct {
	Logger          logger.Config          `yaml:"logger"`
	Tracer          tracer.Config          `yaml:"tracer"`
	Metrics         metrics.Config         `yaml:"metrics"`
	Instrumentation instrumentation.Config `yaml:"instrumentation"`
	Kernel          kernel.Config          `yaml:"kernel"`
	Database        database.Config        `yaml:"database"`
	HTTPClient      httpclient.Config      `yaml:"http_client"`
	Bus             bus.Config             `yaml:"bus"`
	AMQP            amqptransport.Config   `yaml:"amqp"`
	Kafka           kafkatransport.Config  `yaml:"kafka"`
}
