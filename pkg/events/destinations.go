package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported destination types.
	TypeAMQP    = "amqp"
	TypeSNS     = "sns"
	TypeSQS     = "sqs"
	TypePubSub  = "pubsub"
	TypeWebhook = "webhook"
)

// destinationsFile represents the structure of a destinations config file.
type destinationsFile struct {
	Destinations []DestinationConfig `json:"destinations" yaml:"destinations"`
}

// DestinationConfig is a single destination entry declared in config
// files. Exactly one backend block matching Type must be set.
type DestinationConfig struct {
	ID      string         `json:"id" yaml:"id"`
	Type    string         `json:"type" yaml:"type"`
	Enabled *bool          `json:"enabled" yaml:"enabled"`
	AMQP    *BrokerConfig  `json:"amqp" yaml:"amqp"`
	SNS     *TopicConfig   `json:"sns" yaml:"sns"`
	SQS     *QueueConfig   `json:"sqs" yaml:"sqs"`
	PubSub  *PubSubConfig  `json:"pubsub" yaml:"pubsub"`
	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (cfg DestinationConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// DestinationRegistry materializes destination definitions loaded from
// config files.
type DestinationRegistry struct {
	mu           sync.RWMutex
	destinations []DestinationConfig
	idx          map[string]DestinationConfig
}

// LoadDestinations loads the destination registry from a YAML/JSON file.
func LoadDestinations(path string) (*DestinationRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("destinations file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read destinations file: %w", err)
	}

	file, err := parseDestinationsFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Destinations) == 0 {
		return nil, errors.New("destinations file contains no destinations entries")
	}

	reg := &DestinationRegistry{
		destinations: make([]DestinationConfig, len(file.Destinations)),
		idx:          make(map[string]DestinationConfig, len(file.Destinations)),
	}

	for i := range file.Destinations {
		cfg := sanitizeDestinationConfig(file.Destinations[i])
		if err := validateDestinationConfig(cfg); err != nil {
			return nil, fmt.Errorf("destinations[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate destination id %q", cfg.ID)
		}
		reg.destinations[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

// parseDestinationsFile attempts to decode the destinations file content.
func parseDestinationsFile(data []byte, ext string) (destinationsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file destinationsFile
		if err := d.fn(data, &file); err == nil {
			return file, nil
		}
	}

	return destinationsFile{}, errors.New("destinations file format not recognized (expected YAML or JSON)")
}

// sanitizeDestinationConfig trims and normalizes the destination fields.
func sanitizeDestinationConfig(cfg DestinationConfig) DestinationConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	return cfg
}

// validateDestinationConfig checks that required fields are present.
func validateDestinationConfig(cfg DestinationConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case TypeAMQP:
		if cfg.AMQP == nil {
			return fmt.Errorf("amqp config required for destination %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for destination %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for destination %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for destination %q", cfg.ID)
		}
	case TypeWebhook:
		if cfg.Webhook == nil {
			return fmt.Errorf("webhook config required for destination %q", cfg.ID)
		}
	case "":
		return fmt.Errorf("type is required for destination %q", cfg.ID)
	default:
		return fmt.Errorf("unknown type %q for destination %q", cfg.Type, cfg.ID)
	}
	return nil
}

// ByID returns the destination config by id.
func (r *DestinationRegistry) ByID(id string) (DestinationConfig, bool) {
	if r == nil {
		return DestinationConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return DestinationConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured destinations.
func (r *DestinationRegistry) All() []DestinationConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DestinationConfig, len(r.destinations))
	copy(out, r.destinations)
	return out
}

// Enabled returns destinations that are enabled.
func (r *DestinationRegistry) Enabled() []DestinationConfig {
	if r == nil {
		return nil
	}

	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]DestinationConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// Builder creates an EventPublisher from a destination entry.
type Builder func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error)

// BuilderRegistry maps destination types to builders.
type BuilderRegistry interface {
	Register(typ string, builder Builder)
	PublisherFor(cfg DestinationConfig, opts ...Option) (*EventPublisher, error)
}

type builderRegistry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewBuilderRegistry returns a registry with optional pre-registered
// builders.
func NewBuilderRegistry(builders map[string]Builder) BuilderRegistry {
	r := &builderRegistry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a destination type.
func (r *builderRegistry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// PublisherFor returns the publisher built for the provided destination.
func (r *builderRegistry) PublisherFor(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("destination %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no builder registered for type %q", cfg.Type)
	}
	return builder(cfg, opts...)
}

// DefaultBuilderRegistry wires up the known destination types.
func DefaultBuilderRegistry() BuilderRegistry {
	builders := map[string]Builder{
		TypeAMQP: func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
			if cfg.AMQP == nil {
				return nil, fmt.Errorf("destination %q missing amqp configuration", cfg.ID)
			}
			return NewEventPublisher(*cfg.AMQP, opts...)
		},
		TypeSNS: func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
			if cfg.SNS == nil {
				return nil, fmt.Errorf("destination %q missing sns configuration", cfg.ID)
			}
			return NewTopicEventPublisher(*cfg.SNS, opts...)
		},
		TypeSQS: func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
			if cfg.SQS == nil {
				return nil, fmt.Errorf("destination %q missing sqs configuration", cfg.ID)
			}
			return NewQueueEventPublisher(*cfg.SQS, opts...)
		},
		TypePubSub: func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
			if cfg.PubSub == nil {
				return nil, fmt.Errorf("destination %q missing pubsub configuration", cfg.ID)
			}
			return NewPubSubEventPublisher(*cfg.PubSub, opts...)
		},
		TypeWebhook: func(cfg DestinationConfig, opts ...Option) (*EventPublisher, error) {
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("destination %q missing webhook configuration", cfg.ID)
			}
			return NewWebhookEventPublisher(*cfg.Webhook, opts...)
		},
	}
	return NewBuilderRegistry(builders)
}

// BuildAll instantiates publishers for the given destinations using the
// registry.
func BuildAll(reg BuilderRegistry, cfgs []DestinationConfig, opts ...Option) ([]*EventPublisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var pubs []*EventPublisher
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(cfg, opts...)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
