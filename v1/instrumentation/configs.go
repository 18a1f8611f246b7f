package instrumentation

import "github.com/Aleph-Alpha/otel-instrumentation/v1/correlator"

// Operation families that can be switched off through Config.Disabled.
const (
	FamilyKernel     = "kernel"
	FamilyMessenger  = "messenger"
	FamilyStatement  = "statement"
	FamilyHTTPClient = "httpclient"
)

// Config holds the instrumentation settings.
type Config struct {
	// ResponsePropagation writes the server-timing and traceresponse headers
	// of the request span into HTTP responses.
	ResponsePropagation bool `yaml:"response_propagation" envconfig:"OTEL_INSTRUMENTATION_RESPONSE_PROPAGATION" default:"true"`

	// Disabled lists operation families that are not instrumented.
	Disabled []string `yaml:"disabled" envconfig:"OTEL_INSTRUMENTATION_DISABLED"`

	Messenger MessengerConfig `yaml:"messenger"`
}

// MessengerConfig holds the message bus settings.
type MessengerConfig struct {
	// SkipTypes lists receiver type names, as returned by bus.TypeName, whose
	// dispatches and sends are never traced.
	SkipTypes []string `yaml:"skip_types" envconfig:"OTEL_INSTRUMENTATION_MESSENGER_SKIP_TYPES"`
}

func (c Config) enabled(family string) bool {
	for _, d := range c.Disabled {
		if d == family {
			return false
		}
	}
	return true
}

// Logger is the subset of the logger used by the instrumentation. Warn is the
// non-context entry point, so instrumentation problems never mark a unit.
type Logger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// LevelHooker is the logger whose warnings are correlated with spans.
type LevelHooker = correlator.LevelHooker
