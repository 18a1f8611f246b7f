package kafkatransport

import (
	"context"
	"time"
)

const (
	DefaultMinBytes     = 1
	DefaultMaxBytes     = 10e6
	DefaultMaxWait      = 500 * time.Millisecond
	DefaultStartOffset  = -2 // kafka.FirstOffset
	DefaultRequiredAcks = -1 // kafka.RequireAll
	DefaultBatchSize    = 100
	DefaultBatchTimeout = 10 * time.Millisecond
	DefaultMaxAttempts  = 10
	DefaultWriteTimeout = 10 * time.Second
	DefaultFetchTimeout = time.Second
)

// Config defines the Kafka transport settings.
type Config struct {
	// Name is the sender and transport name used on the bus.
	Name string `yaml:"name" envconfig:"KAFKA_TRANSPORT_NAME" default:"kafka"`

	// Routes lists the message types the bus sends through this transport.
	Routes []string `yaml:"routes" envconfig:"KAFKA_ROUTES"`

	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS" default:"localhost:9092"`

	Topic string `yaml:"topic" envconfig:"KAFKA_TOPIC"`

	// GroupID is the consumer group. Offsets are committed explicitly after
	// a message was handled.
	GroupID string `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`

	// IsConsumer creates the reader; otherwise only the writer exists.
	IsConsumer bool `yaml:"is_consumer" envconfig:"KAFKA_IS_CONSUMER"`

	// DeadLetterTopic receives rejected messages. Empty drops them.
	DeadLetterTopic string `yaml:"dead_letter_topic" envconfig:"KAFKA_DEAD_LETTER_TOPIC"`

	MinBytes     int           `yaml:"min_bytes" envconfig:"KAFKA_MIN_BYTES"`
	MaxBytes     int           `yaml:"max_bytes" envconfig:"KAFKA_MAX_BYTES"`
	MaxWait      time.Duration `yaml:"max_wait" envconfig:"KAFKA_MAX_WAIT"`
	StartOffset  int64         `yaml:"start_offset" envconfig:"KAFKA_START_OFFSET"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"KAFKA_FETCH_TIMEOUT"`

	RequiredAcks     int           `yaml:"required_acks" envconfig:"KAFKA_REQUIRED_ACKS"`
	Async            bool          `yaml:"async" envconfig:"KAFKA_ASYNC"`
	BatchSize        int           `yaml:"batch_size" envconfig:"KAFKA_BATCH_SIZE"`
	BatchTimeout     time.Duration `yaml:"batch_timeout" envconfig:"KAFKA_BATCH_TIMEOUT"`
	MaxAttempts      int           `yaml:"max_attempts" envconfig:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"KAFKA_WRITE_TIMEOUT"`
	CompressionCodec string        `yaml:"compression_codec" envconfig:"KAFKA_COMPRESSION_CODEC"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

// TLSConfig configures TLS towards the brokers.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"KAFKA_TLS_CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig configures SASL authentication.
type SASLConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"KAFKA_SASL_ENABLED"`

	// Mechanism is one of PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `yaml:"mechanism" envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"KAFKA_SASL_PASSWORD"`
}

// Logger is the subset of the logger used by the transport.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

func (cfg Config) withDefaults() Config {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = DefaultStartOffset
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = DefaultRequiredAcks
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return cfg
}
