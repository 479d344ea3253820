package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubConfig configures an EventPublisher delivering to a Google Cloud
// Pub/Sub topic.
type PubSubConfig struct {
	ProjectID         string  `json:"project_id" yaml:"project_id"`
	TopicID           string  `json:"topic_id" yaml:"topic_id"`
	RetryAttempts     int     `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	EnableValidation  *bool   `json:"enable_validation" yaml:"enable_validation"`

	// ClientOptions are passed through to the Pub/Sub client, e.g.
	// option.WithEndpoint for emulators.
	ClientOptions []option.ClientOption `json:"-" yaml:"-"`
}

func (c PubSubConfig) withDefaults() PubSubConfig {
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.TopicID = strings.TrimSpace(c.TopicID)
	if c.RetryAttempts < 1 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	return c
}

func (c PubSubConfig) validate() error {
	if c.ProjectID == "" {
		return &ConfigError{Reason: "pubsub project id is required"}
	}
	if c.TopicID == "" {
		return &ConfigError{Reason: "pubsub topic id is required"}
	}
	return nil
}

func (c PubSubConfig) retryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// NewPubSubEventPublisher returns a publisher delivering to a Google
// Cloud Pub/Sub topic.
func NewPubSubEventPublisher(cfg PubSubConfig, opts ...Option) (*EventPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newPublisher(newPubSubTransport(cfg), cfg.RetryAttempts, cfg.retryDelay(), validationEnabled(cfg.EnableValidation), opts), nil
}

// pubsubTransport delivers envelopes to a Pub/Sub topic with event_type
// and organization_id attributes. Failed deliveries are retried in-call.
type pubsubTransport struct {
	cfg    PubSubConfig
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newPubSubTransport(cfg PubSubConfig) *pubsubTransport {
	return &pubsubTransport{cfg: cfg}
}

func (t *pubsubTransport) Connect(ctx context.Context) error {
	if t.topic != nil {
		return nil
	}
	client, err := pubsub.NewClient(ctx, t.cfg.ProjectID, t.cfg.ClientOptions...)
	if err != nil {
		return fmt.Errorf("create pubsub client: %w", err)
	}
	t.client = client
	t.topic = client.Topic(t.cfg.TopicID)
	return nil
}

func (t *pubsubTransport) Healthy() bool      { return t.topic != nil }
func (t *pubsubTransport) RetryDeliver() bool { return true }

func (t *pubsubTransport) Deliver(ctx context.Context, evt Event, body []byte) error {
	if t.topic == nil {
		return errNotConnected
	}
	res := t.topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_type":      evt.EventType,
			"organization_id": evt.OrganizationID,
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to pubsub topic %q: %w", t.cfg.TopicID, err)
	}
	return nil
}

func (t *pubsubTransport) Close() error {
	var errs []error
	if t.topic != nil {
		t.topic.Stop()
	}
	if t.client != nil {
		if err := t.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	t.topic = nil
	t.client = nil
	return errors.Join(errs...)
}
