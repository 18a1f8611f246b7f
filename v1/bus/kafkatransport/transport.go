package kafkatransport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
)

const headerMessageID = "message_id"

// offsetStamp ties a fetched envelope to its Kafka message for committing.
type offsetStamp struct {
	msg kafka.Message
}

// Send writes env to the topic. The message id travels as a header and is
// added to the returned envelope.
func (t *Transport) Send(ctx context.Context, env *bus.Envelope) (*bus.Envelope, error) {
	body, headers, err := t.serializer.Encode(env)
	if err != nil {
		return env, err
	}

	id := uuid.NewString()
	headers[headerMessageID] = id

	start := time.Now()
	err = t.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(id),
		Value:   body,
		Headers: toHeaders(headers),
		Time:    time.Now(),
	})
	t.observeOperation("produce", t.cfg.Topic, "", time.Since(start), err, int64(len(body)))
	if err != nil {
		return env, fmt.Errorf("failed to write message: %w", err)
	}
	return env.With(bus.TransportMessageIDStamp{ID: id}), nil
}

// Get fetches the next message of the consumer group. It waits at most
// FetchTimeout and returns no envelope when nothing arrived. Messages that
// cannot be decoded are dead lettered and committed.
func (t *Transport) Get(ctx context.Context) ([]*bus.Envelope, error) {
	if t.reader == nil {
		return nil, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, t.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	msg, err := t.reader.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}

	headers := fromHeaders(msg.Headers)
	id := headers[headerMessageID]
	delete(headers, headerMessageID)

	env, err := t.serializer.Decode(msg.Value, headers)
	t.observeOperation("consume", msg.Topic, strconv.Itoa(msg.Partition), time.Since(start), err, int64(len(msg.Value)))
	if err != nil {
		if t.logger != nil {
			t.logger.WarnWithContext(ctx, "dropping undecodable message", err, map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		}
		return nil, t.reject(ctx, msg)
	}

	return []*bus.Envelope{env.With(
		offsetStamp{msg: msg},
		bus.TransportMessageIDStamp{ID: id},
	)}, nil
}

// Ack commits the offset of the message env was fetched with.
func (t *Transport) Ack(ctx context.Context, env *bus.Envelope) error {
	if t.reader == nil {
		return ErrNotConsumer
	}
	o, ok := bus.Last[offsetStamp](env)
	if !ok {
		return ErrNoDelivery
	}
	return t.reader.CommitMessages(ctx, o.msg)
}

// Reject forwards the message to the dead letter topic, if any, and commits
// it.
func (t *Transport) Reject(ctx context.Context, env *bus.Envelope) error {
	if t.reader == nil {
		return ErrNotConsumer
	}
	o, ok := bus.Last[offsetStamp](env)
	if !ok {
		return ErrNoDelivery
	}
	return t.reject(ctx, o.msg)
}

func (t *Transport) reject(ctx context.Context, msg kafka.Message) error {
	if t.deadLetter != nil {
		err := t.deadLetter.WriteMessages(ctx, kafka.Message{
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: msg.Headers,
		})
		if err != nil {
			return fmt.Errorf("failed to dead letter message: %w", err)
		}
	}
	return t.reader.CommitMessages(ctx, msg)
}

func toHeaders(headers map[string]string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// fromHeaders keeps the last value of repeated keys.
func fromHeaders(headers []kafka.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
