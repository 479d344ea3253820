package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// QueueConfig configures an EventPublisher delivering to an AWS SQS queue.
type QueueConfig struct {
	QueueURL          string  `json:"queue_url" yaml:"queue_url"`
	Region            string  `json:"region" yaml:"region"`
	RetryAttempts     int     `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	EnableValidation  *bool   `json:"enable_validation" yaml:"enable_validation"`
}

func (c QueueConfig) withDefaults() QueueConfig {
	c.QueueURL = strings.TrimSpace(c.QueueURL)
	if c.Region = strings.TrimSpace(c.Region); c.Region == "" {
		c.Region = defaultRegion
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	return c
}

func (c QueueConfig) validate() error {
	if c.QueueURL == "" {
		return &ConfigError{Reason: "queue url is required"}
	}
	return nil
}

func (c QueueConfig) retryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// NewQueueEventPublisher returns a publisher delivering to an AWS SQS
// queue.
func NewQueueEventPublisher(cfg QueueConfig, opts ...Option) (*EventPublisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return newPublisher(newSQSTransport(cfg), cfg.RetryAttempts, cfg.retryDelay(), validationEnabled(cfg.EnableValidation), opts), nil
}

// sqsClient defines the minimal subset of the SQS client used by
// sqsTransport.
type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// sqsTransport delivers envelopes to an SQS queue. Failed deliveries are
// retried in-call.
type sqsTransport struct {
	cfg    QueueConfig
	client sqsClient
}

func newSQSTransport(cfg QueueConfig) *sqsTransport {
	return &sqsTransport{cfg: cfg}
}

func (t *sqsTransport) Connect(ctx context.Context) error {
	if t.client != nil {
		return nil
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(t.cfg.Region))
	if err != nil {
		return permanent(fmt.Errorf("load aws config: %w", err))
	}
	t.client = sqs.NewFromConfig(awsCfg)
	return nil
}

func (t *sqsTransport) Healthy() bool      { return t.client != nil }
func (t *sqsTransport) RetryDeliver() bool { return true }

func (t *sqsTransport) Deliver(ctx context.Context, evt Event, body []byte) error {
	if t.client == nil {
		return errNotConnected
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(t.cfg.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.EventType),
			},
			"organization_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.OrganizationID),
			},
		},
	}
	if _, err := t.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to sqs: %w", err)
	}
	return nil
}

func (t *sqsTransport) Close() error {
	t.client = nil
	return nil
}
