package events

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpTransport delivers envelopes to a durable topic exchange with the
// event type as routing key. Channel errors are not retried in-call; the
// connection manager discards the connection and the next publish
// reconnects from scratch.
type amqpTransport struct {
	cfg  BrokerConfig
	conn *amqp.Connection
	ch   *amqp.Channel
}

func newAMQPTransport(cfg BrokerConfig) *amqpTransport {
	return &amqpTransport{cfg: cfg}
}

func (t *amqpTransport) Connect(ctx context.Context) error {
	if _, err := amqp.ParseURI(t.cfg.URL); err != nil {
		return permanent(fmt.Errorf("parse broker url: %w", err))
	}

	conn, err := amqp.DialConfig(t.cfg.URL, t.cfg.DialConfig())
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(t.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %q: %w", t.cfg.Exchange, err)
	}

	t.conn = conn
	t.ch = ch
	return nil
}

func (t *amqpTransport) Healthy() bool {
	return t.conn != nil && !t.conn.IsClosed() && t.ch != nil && !t.ch.IsClosed()
}

func (t *amqpTransport) RetryDeliver() bool { return false }

func (t *amqpTransport) Deliver(ctx context.Context, evt Event, body []byte) error {
	if t.ch == nil {
		return errNotConnected
	}
	return t.ch.PublishWithContext(ctx,
		t.cfg.Exchange,
		evt.EventType, // routing key
		false,
		false,
		publishing(body),
	)
}

// publishing builds the message properties for one envelope: persistent
// delivery, JSON content type.
func publishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
}

func (t *amqpTransport) Close() error {
	var errs []error
	if t.ch != nil && !t.ch.IsClosed() {
		if err := t.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if t.conn != nil && !t.conn.IsClosed() {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	t.ch = nil
	t.conn = nil
	return errors.Join(errs...)
}
