package kafkatransport

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
)

func TestNewTransportDefaults(t *testing.T) {
	tr, err := NewTransport(Config{Brokers: []string{"localhost:9092"}, Topic: "orders"}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.NotNil(t, tr.writer)
	assert.Nil(t, tr.reader)
	assert.Equal(t, DefaultFetchTimeout, tr.cfg.FetchTimeout)
	assert.Equal(t, DefaultMaxAttempts, tr.cfg.MaxAttempts)
	assert.Equal(t, int64(DefaultStartOffset), tr.cfg.StartOffset)
}

func TestConsumerRequiresGroup(t *testing.T) {
	_, err := NewTransport(Config{Topic: "orders", IsConsumer: true}, nil, nil)
	assert.Error(t, err)
}

func TestConsumerCreatesDeadLetterWriter(t *testing.T) {
	tr, err := NewTransport(Config{
		Brokers:         []string{"localhost:9092"},
		Topic:           "orders",
		GroupID:         "svc",
		IsConsumer:      true,
		DeadLetterTopic: "orders.dlq",
	}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.NotNil(t, tr.reader)
	require.NotNil(t, tr.deadLetter)
	assert.Equal(t, "orders.dlq", tr.deadLetter.Topic)
}

func TestProducerGetReturnsNothing(t *testing.T) {
	tr, err := NewTransport(Config{Topic: "orders"}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	envs, err := tr.Get(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, envs)

	assert.ErrorIs(t, tr.Ack(context.Background(), bus.Wrap("x")), ErrNotConsumer)
	assert.ErrorIs(t, tr.Reject(context.Background(), bus.Wrap("x")), ErrNotConsumer)
}

func TestAckRequiresDelivery(t *testing.T) {
	tr, err := NewTransport(Config{Topic: "orders", GroupID: "svc", IsConsumer: true}, nil, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.ErrorIs(t, tr.Ack(context.Background(), bus.Wrap("x")), ErrNoDelivery)
	assert.ErrorIs(t, tr.Reject(context.Background(), bus.Wrap("x")), ErrNoDelivery)
}

func TestHeaderConversion(t *testing.T) {
	headers := toHeaders(map[string]string{"traceparent": "00-abc-def-01", "type": "orders.Created"})
	assert.Len(t, headers, 2)

	back := fromHeaders(append(headers, kafka.Header{Key: "type", Value: []byte("orders.Updated")}))
	assert.Equal(t, "00-abc-def-01", back["traceparent"])
	assert.Equal(t, "orders.Updated", back["type"])
}

func TestSASLMechanism(t *testing.T) {
	for _, m := range []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"} {
		t.Run(m, func(t *testing.T) {
			mech, err := createSASLMechanism(SASLConfig{Mechanism: m, Username: "u", Password: "p"})
			require.NoError(t, err)
			assert.Equal(t, m, mech.Name())
		})
	}

	_, err := createSASLMechanism(SASLConfig{Mechanism: "GSSAPI"})
	assert.Error(t, err)
}

func TestTLSConfigMissingCA(t *testing.T) {
	_, err := createTLSConfig(TLSConfig{CACertPath: "/does/not/exist.pem"})
	assert.Error(t, err)
}
