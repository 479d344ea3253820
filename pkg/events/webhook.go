package events

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookConfig configures an EventPublisher delivering to an HTTP
// endpoint.
type WebhookConfig struct {
	URL               string            `json:"url" yaml:"url"`
	Method            string            `json:"method" yaml:"method"`
	Headers           map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds    int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryAttempts     int               `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelaySeconds float64           `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	EnableValidation  *bool             `json:"enable_validation" yaml:"enable_validation"`
}

func (c WebhookConfig) withDefaults() WebhookConfig {
	c.URL = strings.TrimSpace(c.URL)
	if c.Method = strings.ToUpper(strings.TrimSpace(c.Method)); c.Method == "" {
		c.Method = http.MethodPost
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	return c
}

func (c WebhookConfig) validate() error {
	if c.URL == "" {
		return &ConfigError{Reason: "webhook url is required"}
	}
	return nil
}

func (c WebhookConfig) retryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// NewWebhookEventPublisher returns a publisher delivering to an HTTP
// endpoint.
func NewWebhookEventPublisher(cfg WebhookConfig, opts ...Option) (*EventPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newPublisher(newWebhookTransport(cfg), cfg.RetryAttempts, cfg.retryDelay(), validationEnabled(cfg.EnableValidation), opts), nil
}

// webhookTransport posts envelopes to an HTTP sink. Failed deliveries are
// retried in-call.
type webhookTransport struct {
	cfg    WebhookConfig
	client *resty.Client
}

func newWebhookTransport(cfg WebhookConfig) *webhookTransport {
	return &webhookTransport{cfg: cfg}
}

func (t *webhookTransport) Connect(ctx context.Context) error {
	if t.client == nil {
		c := resty.New()
		c.SetTimeout(time.Duration(t.cfg.TimeoutSeconds) * time.Second)
		t.client = c
	}
	return nil
}

func (t *webhookTransport) Healthy() bool      { return t.client != nil }
func (t *webhookTransport) RetryDeliver() bool { return true }

func (t *webhookTransport) Deliver(ctx context.Context, evt Event, body []byte) error {
	if t.client == nil {
		return errNotConnected
	}

	req := t.client.R().
		SetContext(ctx).
		SetBody(body)
	if len(t.cfg.Headers) > 0 {
		req.SetHeaders(t.cfg.Headers)
	}
	req.SetHeader("Content-Type", "application/json")
	req.SetHeader("X-Event-Type", evt.EventType)

	resp, err := req.Execute(t.cfg.Method, t.cfg.URL)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}
	return nil
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

func (t *webhookTransport) Close() error {
	t.client = nil
	return nil
}
