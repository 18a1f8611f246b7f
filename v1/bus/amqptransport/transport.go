package amqptransport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/otel-instrumentation/v1/bus"
)

// deliveryStamp ties a fetched envelope to its delivery for Ack and Reject.
type deliveryStamp struct {
	tag uint64
}

func (t *Transport) currentChannel() (*amqp.Channel, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.channel == nil || t.channel.IsClosed() {
		return nil, ErrNotConnected
	}
	return t.channel, nil
}

// Send publishes env to the configured exchange and waits for the broker
// confirmation.
func (t *Transport) Send(ctx context.Context, env *bus.Envelope) (*bus.Envelope, error) {
	body, headers, err := t.serializer.Encode(env)
	if err != nil {
		return env, err
	}

	start := time.Now()
	id := uuid.NewString()
	err = t.publish(ctx, id, body, headers)
	t.observeOperation("send", t.cfg.Channel.ExchangeName, t.cfg.Channel.RoutingKey, time.Since(start), err, int64(len(body)))
	if err != nil {
		return env, err
	}
	return env.With(bus.TransportMessageIDStamp{ID: id}), nil
}

func (t *Transport) publish(ctx context.Context, id string, body []byte, headers map[string]string) error {
	ch, err := t.currentChannel()
	if err != nil {
		return err
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		t.cfg.Channel.ExchangeName,
		t.cfg.Channel.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			Headers:      toTable(headers),
			ContentType:  headers[bus.HeaderContentType],
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if confirmation == nil {
		return nil
	}
	ok, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to wait for publish confirmation: %w", err)
	}
	if !ok {
		return ErrNotConfirmed
	}
	return nil
}

// Get fetches up to BatchSize messages from the queue. Publishers always get
// an empty result. Messages that cannot be decoded are dead lettered.
func (t *Transport) Get(ctx context.Context) ([]*bus.Envelope, error) {
	if !t.cfg.Channel.IsConsumer {
		return nil, nil
	}
	ch, err := t.currentChannel()
	if err != nil {
		return nil, err
	}

	var out []*bus.Envelope
	for len(out) < t.cfg.Channel.BatchSize {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		start := time.Now()
		d, ok, err := ch.Get(t.cfg.Channel.QueueName, false)
		if err != nil {
			return out, fmt.Errorf("failed to fetch message: %w", err)
		}
		if !ok {
			break
		}

		env, err := t.serializer.Decode(d.Body, fromDelivery(d))
		t.observeOperation("receive", t.cfg.Channel.QueueName, "", time.Since(start), err, int64(len(d.Body)))
		if err != nil {
			if t.logger != nil {
				t.logger.WarnWithContext(ctx, "dropping undecodable message", err, map[string]interface{}{
					"message_id": d.MessageId,
				})
			}
			_ = ch.Nack(d.DeliveryTag, false, false)
			continue
		}
		out = append(out, env.With(
			deliveryStamp{tag: d.DeliveryTag},
			bus.TransportMessageIDStamp{ID: d.MessageId},
		))
	}
	return out, nil
}

// Ack acknowledges the delivery env was fetched with.
func (t *Transport) Ack(ctx context.Context, env *bus.Envelope) error {
	d, ok := bus.Last[deliveryStamp](env)
	if !ok {
		return ErrNoDelivery
	}
	ch, err := t.currentChannel()
	if err != nil {
		return err
	}
	return ch.Ack(d.tag, false)
}

// Reject nacks the delivery without requeueing, so it goes to the dead
// letter exchange when one is configured.
func (t *Transport) Reject(ctx context.Context, env *bus.Envelope) error {
	d, ok := bus.Last[deliveryStamp](env)
	if !ok {
		return ErrNoDelivery
	}
	ch, err := t.currentChannel()
	if err != nil {
		return err
	}
	return ch.Nack(d.tag, false, false)
}

func toTable(headers map[string]string) amqp.Table {
	table := make(amqp.Table, len(headers))
	for k, v := range headers {
		table[k] = v
	}
	return table
}

// fromDelivery returns the string headers of d, falling back to the delivery
// content type.
func fromDelivery(d amqp.Delivery) map[string]string {
	headers := make(map[string]string, len(d.Headers)+1)
	for k, v := range d.Headers {
		switch val := v.(type) {
		case string:
			headers[k] = val
		case []byte:
			headers[k] = string(val)
		}
	}
	if _, ok := headers[bus.HeaderContentType]; !ok && d.ContentType != "" {
		headers[bus.HeaderContentType] = d.ContentType
	}
	return headers
}
