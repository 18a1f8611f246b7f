package bus

import (
	"context"
	"time"
)

// Config holds the bus settings.
type Config struct {
	// Name of the default bus.
	Name string `yaml:"name" envconfig:"BUS_NAME" default:"default"`

	Worker WorkerConfig `yaml:"worker"`
}

// WorkerConfig holds the consumer loop settings.
type WorkerConfig struct {
	// PollInterval is the pause between two empty fetches of a receiver.
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"BUS_WORKER_POLL_INTERVAL" default:"200ms"`
}

// Logger is the subset of the logger used by the bus.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
