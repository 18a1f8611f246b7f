package database

import (
	"context"
	"time"
)

const (
	// HookClass is the hook class of statement execution. The call receiver
	// implements Statement; Args are the statement arguments.
	HookClass = "database.Statement"

	OpExecute = "Execute"
)

// Driver names accepted in Connection.Driver.
const (
	// DriverPQ uses github.com/lib/pq.
	DriverPQ = "postgres"

	// DriverPGX uses the pgx stdlib driver with a QueryTracer installed.
	DriverPGX = "pgx"
)

const (
	DefaultMaxOpenConns        = 50
	DefaultMaxIdleConns        = 25
	DefaultConnMaxLifetime     = time.Minute
	DefaultHealthCheckInterval = 10 * time.Second
)

// Config holds the database settings.
type Config struct {
	Connection        Connection        `yaml:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details"`
}

// Connection identifies the database server.
type Connection struct {
	Driver   string `yaml:"driver" envconfig:"DB_DRIVER" default:"postgres"`
	Host     string `yaml:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     string `yaml:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"DB_SSL_MODE" default:"disable"`
}

// ConnectionDetails tunes the connection pools. Zero values fall back to
// the package defaults.
type ConnectionDetails struct {
	MaxOpenConns        int           `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns        int           `yaml:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" envconfig:"DB_CONN_MAX_LIFETIME"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" envconfig:"DB_HEALTH_CHECK_INTERVAL"`
}

// DSN returns the key/value connection string.
func (c Connection) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DbName +
		" sslmode=" + c.SSLMode
}

// Logger is the subset of the logger used by the client.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

func (d ConnectionDetails) withDefaults() ConnectionDetails {
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = DefaultMaxOpenConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = DefaultMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if d.HealthCheckInterval == 0 {
		d.HealthCheckInterval = DefaultHealthCheckInterval
	}
	return d
}
