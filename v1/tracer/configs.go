package tracer

// Config holds the tracer provider settings.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME"`

	// AppEnv is recorded as deployment.environment.
	AppEnv string `yaml:"app_env" envconfig:"TRACER_APP_ENV" default:"development"`

	// EnableExport turns on the OTLP/HTTP exporter. The exporter reads its
	// endpoint and headers from the standard OTEL_EXPORTER_OTLP_* variables.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT"`

	// Baggage adds the W3C baggage propagator next to trace context.
	Baggage bool `yaml:"baggage" envconfig:"TRACER_BAGGAGE" default:"true"`
}

// Logger is the subset of the logger used by the tracer.
//
//go:generate mockgen -source=configs.go -destination=mock_logger_test.go -package=tracer
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}
