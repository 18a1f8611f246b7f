package amqptransport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

// Transport sends and receives bus envelopes through RabbitMQ.
type Transport struct {
	cfg Config

	conn    *amqp.Connection
	channel *amqp.Channel

	// mu protects conn and channel, which are swapped on reconnect
	mu sync.RWMutex

	serializer *bus.Serializer
	observer   observability.Observer
	logger     Logger

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewTransport connects to RabbitMQ and prepares the channel. Consumers
// declare the exchange, the queue, its binding and the dead letter setup.
func NewTransport(cfg Config, serializer *bus.Serializer, logger Logger) (*Transport, error) {
	t := newTransport(cfg, serializer, logger)

	conn, err := t.dial()
	if err != nil {
		return nil, fmt.Errorf("error in connecting to rabbit: %w", err)
	}

	ch, err := t.openChannel(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error in declaring channel: %w", err)
	}

	t.conn, t.channel = conn, ch
	return t, nil
}

func newTransport(cfg Config, serializer *bus.Serializer, logger Logger) *Transport {
	if cfg.Channel.BatchSize <= 0 {
		cfg.Channel.BatchSize = 10
	}
	if serializer == nil {
		serializer = bus.NewSerializer()
	}
	return &Transport{
		cfg:            cfg,
		serializer:     serializer,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}
}

// WithObserver attaches an observer notified about every send and receive.
func (t *Transport) WithObserver(observer observability.Observer) *Transport {
	t.observer = observer
	return t
}

// dial opens a connection with a 2 second heartbeat, using amqps when SSL
// is enabled and a client certificate when configured.
func (t *Transport) dial() (*amqp.Connection, error) {
	c := t.cfg.Connection
	scheme := "amqp"
	config := amqp.Config{Heartbeat: 2 * time.Second}

	if c.IsSSLEnabled {
		scheme = "amqps"
		if c.UseCert {
			tlsConfig, err := clientTLSConfig(c)
			if err != nil {
				return nil, err
			}
			config.TLSClientConfig = tlsConfig
		}
	}

	url := fmt.Sprintf("%s://%v:%v@%v:%v", scheme, c.User, c.Password, c.Host, c.Port)
	conn, err := amqp.DialConfig(url, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbit: %w", err)
	}
	t.logInfo("connected to rabbit", map[string]interface{}{"host": c.Host})
	return conn, nil
}

func clientTLSConfig(c Connection) (*tls.Config, error) {
	caCert, err := os.ReadFile(c.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caCert)

	cert, err := tls.LoadX509KeyPair(c.ClientCertPath, c.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		ServerName:   c.ServerName,
	}, nil
}

// openChannel creates a channel in confirm mode and, for consumers, declares
// the topology.
func (t *Transport) openChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if !t.cfg.Channel.IsConsumer {
		return ch, nil
	}

	if err = declare(ch, t.cfg); err != nil {
		_ = ch.Close()
		return nil, err
	}

	if t.cfg.Channel.PrefetchCount > 0 {
		if err = ch.Qos(t.cfg.Channel.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}
	return ch, nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	// durable, not auto-deleted, not internal, wait for the server
	if err := ch.ExchangeDeclare(cfg.Channel.ExchangeName, cfg.Channel.ExchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queueArgs := amqp.Table{}
	if dl := cfg.DeadLetter; dl.ExchangeName != "" && dl.Ttl > 0 {
		if err := ch.ExchangeDeclare(dl.ExchangeName, "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter exchange: %w", err)
		}
		if _, err := ch.QueueDeclare(dl.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dead letter queue: %w", err)
		}
		if err := ch.QueueBind(dl.QueueName, dl.RoutingKey, dl.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind dead letter queue: %w", err)
		}
		queueArgs = amqp.Table{
			"x-dead-letter-exchange":    dl.ExchangeName,
			"x-dead-letter-routing-key": dl.RoutingKey,
			"x-message-ttl":             dl.Ttl * 1000,
		}
	}

	if _, err := ch.QueueDeclare(cfg.Channel.QueueName, true, false, false, false, queueArgs); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Channel.QueueName, cfg.Channel.RoutingKey, cfg.Channel.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// RetryConnection watches the connection and re-establishes it, with its
// channel, whenever it closes. It returns on GracefulShutdown.
func (t *Transport) RetryConnection() {
outerLoop:
	for {
		errChan := make(chan *amqp.Error, 1)
		t.mu.RLock()
		t.conn.NotifyClose(errChan)
		t.mu.RUnlock()

		select {
		case <-t.shutdownSignal:
			return
		case amqpErr := <-errChan:
			var err error
			if amqpErr != nil {
				err = amqpErr
			}
			t.logWarn("rabbit connection closed, retrying", err)
		}

		for {
			select {
			case <-t.shutdownSignal:
				return
			default:
			}

			conn, err := t.dial()
			if err != nil {
				t.logError("rabbit reconnection failed", err)
				time.Sleep(time.Second)
				continue
			}
			ch, err := t.openChannel(conn)
			if err != nil {
				t.logError("failed to re-establish rabbit channel", err)
				_ = conn.Close()
				time.Sleep(time.Second)
				continue
			}

			t.mu.Lock()
			if t.channel != nil {
				_ = t.channel.Close()
			}
			t.conn, t.channel = conn, ch
			t.mu.Unlock()

			t.logInfo("reconnected to rabbit", nil)
			continue outerLoop
		}
	}
}

// GracefulShutdown stops RetryConnection and closes the channel and the
// connection.
func (t *Transport) GracefulShutdown() {
	t.closeShutdownOnce.Do(func() {
		close(t.shutdownSignal)
	})

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.channel != nil {
		if err := t.channel.Close(); err != nil {
			t.logWarn("failed to close rabbit channel", err)
		}
	}
	if t.conn != nil && !t.conn.IsClosed() {
		if err := t.conn.Close(); err != nil {
			t.logWarn("failed to close rabbit connection", err)
		}
	}
}

func (t *Transport) logInfo(msg string, fields map[string]interface{}) {
	if t.logger != nil {
		t.logger.Info(msg, nil, fields)
	}
}

func (t *Transport) logWarn(msg string, err error) {
	if t.logger != nil {
		t.logger.Warn(msg, err)
	}
}

func (t *Transport) logError(msg string, err error) {
	if t.logger != nil {
		t.logger.Error(msg, err)
	}
}
