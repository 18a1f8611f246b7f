package kafkatransport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
	"github.com/Aleph-Alpha/otel-instrumentation/v1/observability"
)

// Transport sends and receives bus envelopes through Kafka.
type Transport struct {
	cfg Config

	writer     *kafka.Writer
	deadLetter *kafka.Writer
	reader     *kafka.Reader

	serializer *bus.Serializer
	observer   observability.Observer
	logger     Logger
}

// NewTransport creates the writer and, for consumers, the reader and the
// dead letter writer. No connection is opened until the first operation.
func NewTransport(cfg Config, serializer *bus.Serializer, logger Logger) (*Transport, error) {
	cfg = cfg.withDefaults()
	if serializer == nil {
		serializer = bus.NewSerializer()
	}

	t := &Transport{cfg: cfg, serializer: serializer, logger: logger}

	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
	}

	dialer := &kafka.Dialer{TLS: tlsConfig, SASLMechanism: mechanism}

	t.writer = t.createWriter(cfg.Topic, dialer)
	if cfg.IsConsumer {
		if cfg.GroupID == "" {
			return nil, errors.New("kafka consumer requires a group id")
		}
		t.reader = t.createReader(dialer)
		if cfg.DeadLetterTopic != "" {
			t.deadLetter = t.createWriter(cfg.DeadLetterTopic, dialer)
		}
	}

	return t, nil
}

// WithObserver attaches an observer notified about every send and receive.
func (t *Transport) WithObserver(observer observability.Observer) *Transport {
	t.observer = observer
	return t
}

func (t *Transport) errorLogger() kafka.LoggerFunc {
	if t.logger != nil {
		return func(msg string, args ...interface{}) {
			t.logger.Error("kafka internal error", nil, map[string]interface{}{
				"error": fmt.Sprintf(msg, args...),
			})
		}
	}
	return func(msg string, args ...interface{}) {
		log.Printf("KAFKA ERROR: "+msg, args...)
	}
}

func (t *Transport) createWriter(topic string, dialer *kafka.Dialer) *kafka.Writer {
	cfg := t.cfg
	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: cfg.RequiredAcks,
		ErrorLogger:  t.errorLogger(),
		Dialer:       dialer,
	}

	if cfg.Async {
		writerConfig.Async = true
		writerConfig.BatchSize = cfg.BatchSize
		writerConfig.BatchTimeout = cfg.BatchTimeout
	}

	switch cfg.CompressionCodec {
	case "gzip":
		writerConfig.CompressionCodec = &compress.GzipCodec
	case "snappy":
		writerConfig.CompressionCodec = &compress.SnappyCodec
	case "lz4":
		writerConfig.CompressionCodec = &compress.Lz4Codec
	case "zstd":
		writerConfig.CompressionCodec = &compress.ZstdCodec
	}

	return kafka.NewWriter(writerConfig)
}

func (t *Transport) createReader(dialer *kafka.Dialer) *kafka.Reader {
	cfg := t.cfg
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
		ErrorLogger: t.errorLogger(),
		Dialer:      dialer,
		// commits are explicit, see Ack
		CommitInterval: 0,
	})
}

func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "PLAIN":
		return plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}

// Close closes the writers and the reader.
func (t *Transport) Close() error {
	var errs []error
	if t.writer != nil {
		errs = append(errs, t.writer.Close())
	}
	if t.deadLetter != nil {
		errs = append(errs, t.deadLetter.Close())
	}
	if t.reader != nil {
		errs = append(errs, t.reader.Close())
	}
	return errors.Join(errs...)
}
