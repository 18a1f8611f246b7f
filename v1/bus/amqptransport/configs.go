package amqptransport

import "context"

// Config defines the RabbitMQ transport settings.
type Config struct {
	// Name is the sender and transport name used on the bus.
	Name string `yaml:"name" envconfig:"AMQP_TRANSPORT_NAME" default:"amqp"`

	// Routes lists the message types the bus sends through this transport.
	Routes []string `yaml:"routes" envconfig:"AMQP_ROUTES"`

	Connection Connection `yaml:"connection"`

	Channel Channel `yaml:"channel"`

	DeadLetter DeadLetter `yaml:"dead_letter"`
}

// Connection contains the broker address, credentials and TLS settings.
type Connection struct {
	Host string `yaml:"host" envconfig:"AMQP_HOST" default:"localhost"`

	Port uint `yaml:"port" envconfig:"AMQP_PORT" default:"5672"`

	User string `yaml:"user" envconfig:"AMQP_USER" default:"guest"`

	Password string `yaml:"password" envconfig:"AMQP_PASSWORD" default:"guest"`

	// IsSSLEnabled switches to amqps.
	IsSSLEnabled bool `yaml:"is_ssl_enabled" envconfig:"AMQP_SSL_ENABLED"`

	// UseCert enables mutual TLS with the client certificate below.
	UseCert bool `yaml:"use_cert" envconfig:"AMQP_USE_CERT"`

	CACertPath string `yaml:"ca_cert_path" envconfig:"AMQP_CA_CERT_PATH"`

	ClientCertPath string `yaml:"client_cert_path" envconfig:"AMQP_CLIENT_CERT_PATH"`

	ClientKeyPath string `yaml:"client_key_path" envconfig:"AMQP_CLIENT_KEY_PATH"`

	ServerName string `yaml:"server_name" envconfig:"AMQP_SERVER_NAME"`
}

// Channel configures the exchange, queue and binding.
type Channel struct {
	ExchangeName string `yaml:"exchange_name" envconfig:"AMQP_EXCHANGE_NAME"`

	ExchangeType string `yaml:"exchange_type" envconfig:"AMQP_EXCHANGE_TYPE" default:"direct"`

	RoutingKey string `yaml:"routing_key" envconfig:"AMQP_ROUTING_KEY"`

	QueueName string `yaml:"queue_name" envconfig:"AMQP_QUEUE_NAME"`

	PrefetchCount int `yaml:"prefetch_count" envconfig:"AMQP_PREFETCH_COUNT"`

	// IsConsumer declares the exchange, queue and binding and lets the
	// worker fetch from the queue. Publishers leave it false.
	IsConsumer bool `yaml:"is_consumer" envconfig:"AMQP_IS_CONSUMER"`

	// BatchSize is the maximum number of messages fetched per Get.
	BatchSize int `yaml:"batch_size" envconfig:"AMQP_BATCH_SIZE" default:"10"`
}

// DeadLetter configures where rejected messages go.
type DeadLetter struct {
	ExchangeName string `yaml:"exchange_name" envconfig:"AMQP_DLX_EXCHANGE_NAME"`

	QueueName string `yaml:"queue_name" envconfig:"AMQP_DLX_QUEUE_NAME"`

	RoutingKey string `yaml:"routing_key" envconfig:"AMQP_DLX_ROUTING_KEY"`

	// Ttl is the message TTL of the main queue, in seconds.
	Ttl int `yaml:"ttl" envconfig:"AMQP_DLX_TTL"`
}

// Logger is the subset of the logger used by the transport.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
