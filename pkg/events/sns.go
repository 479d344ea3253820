package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient defines the minimal subset of the SNS client used by
// snsTransport.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsTransport delivers envelopes to an SNS topic with event_type and
// organization_id message attributes for consumer-side filtering. Failed
// deliveries are retried in-call.
type snsTransport struct {
	cfg    TopicConfig
	client snsClient
}

func newSNSTransport(cfg TopicConfig) *snsTransport {
	return &snsTransport{cfg: cfg}
}

// Connect builds the SNS client lazily; there is no standing connection
// to establish.
func (t *snsTransport) Connect(ctx context.Context) error {
	if t.client != nil {
		return nil
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, t.cfg.awsOptions()...)
	if err != nil {
		return permanent(fmt.Errorf("load aws config: %w", err))
	}
	t.client = sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if t.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(t.cfg.Endpoint)
		}
	})
	return nil
}

func (t *snsTransport) Healthy() bool      { return t.client != nil }
func (t *snsTransport) RetryDeliver() bool { return true }

func (t *snsTransport) Deliver(ctx context.Context, evt Event, body []byte) error {
	if t.client == nil {
		return errNotConnected
	}
	input := &sns.PublishInput{
		TopicArn: aws.String(t.cfg.TopicARN),
		Message:  aws.String(string(body)),
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
	if _, err := t.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}
	return nil
}

func (t *snsTransport) Close() error {
	t.client = nil
	return nil
}
