package events

import (
	"strings"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultExchange is the topic exchange events are published to when
	// no exchange is configured.
	DefaultExchange = "fitviz.events"

	defaultRetryAttempts     = 3
	defaultRetryDelaySeconds = 1.0
	defaultConnTimeoutSecs   = 10
	defaultHeartbeatSecs     = 600
	defaultRegion            = "us-east-2"
)

// BrokerConfig configures an EventPublisher delivering to a RabbitMQ topic
// exchange. Constructed once and read-only thereafter.
type BrokerConfig struct {
	URL                      string  `json:"url" yaml:"url"`
	Exchange                 string  `json:"exchange" yaml:"exchange"`
	RetryAttempts            int     `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelaySeconds        float64 `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	EnableValidation         *bool   `json:"enable_validation" yaml:"enable_validation"`
	ConnectionTimeoutSeconds int     `json:"connection_timeout_seconds" yaml:"connection_timeout_seconds"`
	HeartbeatSeconds         int     `json:"heartbeat_seconds" yaml:"heartbeat_seconds"`
	ChannelMax               int     `json:"channel_max" yaml:"channel_max"`
	FrameMax                 int     `json:"frame_max" yaml:"frame_max"`
}

func (c BrokerConfig) withDefaults() BrokerConfig {
	c.URL = strings.TrimSpace(c.URL)
	if c.Exchange = strings.TrimSpace(c.Exchange); c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelaySeconds <= 0 {
		c.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.ConnectionTimeoutSeconds <= 0 {
		c.ConnectionTimeoutSeconds = defaultConnTimeoutSecs
	}
	if c.HeartbeatSeconds <= 0 {
		c.HeartbeatSeconds = defaultHeartbeatSecs
	}
	return c
}

func (c BrokerConfig) validate() error {
	if c.URL == "" {
		return &ConfigError{Reason: "broker url is required"}
	}
	return nil
}

func (c BrokerConfig) retryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// DialConfig converts the config into AMQP connection parameters. It
// performs no I/O and is independently testable.
func (c BrokerConfig) DialConfig() amqp.Config {
	return amqp.Config{
		Heartbeat:  time.Duration(c.HeartbeatSeconds) * time.Second,
		ChannelMax: uint16(c.ChannelMax),
		FrameSize:  c.FrameMax,
		Dial:       amqp.DefaultDial(time.Duration(c.ConnectionTimeoutSeconds) * time.Second),
	}
}

// TopicConfig configures an EventPublisher delivering to an AWS SNS topic.
type TopicConfig struct {
	TopicARN        string `json:"topic_arn" yaml:"topic_arn"`
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	// Endpoint overrides the SNS endpoint, e.g. for LocalStack.
	Endpoint          string  `json:"endpoint" yaml:"endpoint"`
	RetryAttempts     int     `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelaySeconds float64 `json:"retry_delay_seconds" yaml:"retry_delay_seconds"`
	EnableValidation  *bool   `json:"enable_validation" yaml:"enable_validation"`
}

func (c TopicConfig) withDefaults() TopicConfig {
	c.TopicARN = strings.TrimSpace(c.TopicARN)
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

func (c TopicConfig) validate() error {
	if c.TopicARN == "" {
		return &ConfigError{Reason: "topic arn is required"}
	}
	return nil
}

func (c TopicConfig) retryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// awsOptions converts the config into AWS client construction options. It
// performs no I/O.
func (c TopicConfig) awsOptions() []func(*awscfg.LoadOptions) error {
	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	return opts
}

// validationEnabled resolves the tri-state validation flag; unset means
// enabled.
func validationEnabled(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}
