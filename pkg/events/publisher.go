package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// OrganizationIDResolver returns the ambient organization id for a call,
// or "" when none is available. It is consulted only when a publish call
// carries no explicit organization id.
type OrganizationIDResolver func(ctx context.Context) string

// Publisher is the surface host applications integrate against.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data map[string]any, opts ...PublishOption) bool
	Close()
}

// Option configures an EventPublisher at construction time.
type Option func(*EventPublisher)

// WithLogger sets the logger used by the publisher. Nil restores the
// no-op default.
func WithLogger(log Logger) Option {
	return func(p *EventPublisher) { p.log = ensureLogger(log) }
}

// WithOrganizationIDResolver supplies the resolver consulted when a
// publish call carries no explicit organization id.
func WithOrganizationIDResolver(r OrganizationIDResolver) Option {
	return func(p *EventPublisher) { p.resolveOrg = r }
}

// WithSchemaRegistry replaces the default schema registry.
func WithSchemaRegistry(reg *SchemaRegistry) Option {
	return func(p *EventPublisher) {
		if reg != nil {
			p.schemas = reg
		}
	}
}

// PublishOption adjusts a single publish call.
type PublishOption func(*publishOptions)

type publishOptions struct {
	organizationID string
	metadata       map[string]any
}

// WithOrganizationID sets the organization explicitly, taking precedence
// over the configured resolver.
func WithOrganizationID(id string) PublishOption {
	return func(o *publishOptions) { o.organizationID = id }
}

// WithMetadata attaches provenance metadata (source, version, request id)
// to the published envelope.
func WithMetadata(md map[string]any) PublishOption {
	return func(o *publishOptions) { o.metadata = md }
}

// EventPublisher delivers domain events to a single destination. It is
// safe for concurrent use: one live connection is shared across all calls
// and every delivery is serialized by the connection manager's lock.
type EventPublisher struct {
	conn             *connManager
	schemas          *SchemaRegistry
	resolveOrg       OrganizationIDResolver
	enableValidation bool
	log              Logger
}

// NewEventPublisher returns a publisher delivering to a RabbitMQ topic
// exchange. The connection is established lazily on the first publish.
func NewEventPublisher(cfg BrokerConfig, opts ...Option) (*EventPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newPublisher(newAMQPTransport(cfg), cfg.RetryAttempts, cfg.retryDelay(), validationEnabled(cfg.EnableValidation), opts), nil
}

// NewTopicEventPublisher returns a publisher delivering to an AWS SNS
// topic.
func NewTopicEventPublisher(cfg TopicConfig, opts ...Option) (*EventPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newPublisher(newSNSTransport(cfg), cfg.RetryAttempts, cfg.retryDelay(), validationEnabled(cfg.EnableValidation), opts), nil
}

// NewPublisherWithTransport wires a custom Transport into the standard
// publish pipeline.
func NewPublisherWithTransport(tr Transport, retryAttempts int, retryDelay time.Duration, enableValidation bool, opts ...Option) (*EventPublisher, error) {
	if tr == nil {
		return nil, &ConfigError{Reason: "transport is required"}
	}
	return newPublisher(tr, retryAttempts, retryDelay, enableValidation, opts), nil
}

func newPublisher(tr Transport, attempts int, delay time.Duration, validate bool, opts []Option) *EventPublisher {
	p := &EventPublisher{
		schemas:          DefaultSchemaRegistry(),
		enableValidation: validate,
		log:              noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.conn = newConnManager(tr, attempts, delay, p.log)
	return p
}

// Publish delivers one event, returning true only when the transport
// acknowledged it. Every expected failure category (no organization,
// validation, connection, delivery) is swallowed here and surfaces as a
// false return plus a log entry, so a transport outage never crashes the
// calling request path.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, data map[string]any, opts ...PublishOption) bool {
	err := p.publish(ctx, eventType, data, opts)
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, ErrNoOrganizationID):
		p.log.WarnObj("no organization id available, skipping event", "publish_skipped", map[string]any{
			"event_type": eventType,
		})
	case errors.Is(err, ErrClosed):
		p.log.WarnObj("publisher is closed, cannot publish", "publish_closed", map[string]any{
			"event_type": eventType,
		})
	default:
		p.log.ErrorObj("publish failed", "publish_error", map[string]any{
			"event_type": eventType,
			"error":      err.Error(),
		})
	}
	return false
}

// PublishStrict is the strict-mode variant of Publish: expected failure
// categories surface as typed errors (ValidationError, ConnectionError,
// DeliveryError, ErrNoOrganizationID, ErrClosed) instead of a boolean.
func (p *EventPublisher) PublishStrict(ctx context.Context, eventType string, data map[string]any, opts ...PublishOption) error {
	return p.publish(ctx, eventType, data, opts)
}

// PublishAsync runs Publish on its own goroutine so callers are not
// blocked by the network round trip. The result resolves on the returned
// channel once the delivery attempt completes; an already-dispatched
// attempt is not interruptible.
func (p *EventPublisher) PublishAsync(ctx context.Context, eventType string, data map[string]any, opts ...PublishOption) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		out <- p.Publish(ctx, eventType, data, opts...)
		close(out)
	}()
	return out
}

func (p *EventPublisher) publish(ctx context.Context, eventType string, data map[string]any, opts []PublishOption) error {
	if p.conn.closed() {
		return ErrClosed
	}

	var po publishOptions
	for _, opt := range opts {
		opt(&po)
	}

	orgID := po.organizationID
	if orgID == "" && p.resolveOrg != nil {
		orgID = p.resolveOrg(ctx)
	}
	if orgID == "" {
		return ErrNoOrganizationID
	}

	if p.enableValidation {
		res := p.schemas.Validate(eventType, data)
		if !res.SchemaFound {
			p.log.WarnObj("no validation schema for event type", "schema_missing", map[string]any{
				"event_type": eventType,
			})
		}
		if !res.OK() {
			return &ValidationError{EventType: eventType, Violations: res.Violations}
		}
	}

	evt := NewEvent(eventType, orgID, data)
	evt.Metadata = po.metadata

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.ensureConnected(ctx); err != nil {
		return err
	}
	if err := p.conn.deliver(ctx, evt, body); err != nil {
		return err
	}

	p.log.InfoObj("published event", "publish_ok", map[string]any{
		"event_id":        evt.EventID,
		"event_type":      eventType,
		"organization_id": orgID,
	})
	return nil
}

// Close releases the transport and marks the publisher terminal. Safe to
// call multiple times; after the first Close every publish returns false
// without any transport call.
func (p *EventPublisher) Close() {
	p.conn.close()
	p.log.InfoObj("publisher closed", "publisher_closed", nil)
}

// Scoped runs fn with the publisher and always closes it when fn returns,
// on both normal and error exits.
func Scoped(p *EventPublisher, fn func(*EventPublisher) error) error {
	defer p.Close()
	return fn(p)
}
