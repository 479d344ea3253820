// Command verify publishes a probe event through the configured transport
// so operators can confirm broker credentials, exchange bindings, and
// schema files before rolling a service out.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Fitness-Visualizer-Inc/fitviz-events/internal/config"
	"github.com/Fitness-Visualizer-Inc/fitviz-events/internal/logger"
	"github.com/Fitness-Visualizer-Inc/fitviz-events/pkg/events"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close(log)

	log.Info("starting verification", zap.String("transport", cfg.Transport))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := publisherOptions(cfg, log)
	if err != nil {
		return err
	}

	probe := map[string]any{
		"workout_id": "verify-0001",
		"title":      "Connectivity Probe",
		"created_by": "verify-cli",
	}

	if cfg.Transport == "file" {
		return verifyFanout(ctx, cfg, log, probe, opts)
	}

	p, err := buildPublisher(cfg, opts)
	if err != nil {
		return err
	}
	return events.Scoped(p, func(p *events.EventPublisher) error {
		if err := p.PublishStrict(ctx, "workout.created", probe); err != nil {
			return fmt.Errorf("probe publish: %w", err)
		}
		log.Info("probe event delivered", zap.String("event_type", "workout.created"))
		return nil
	})
}

// publisherOptions assembles the shared publisher options: logging, the
// configured organization, and any schema file override.
func publisherOptions(cfg *config.Config, log *zap.Logger) ([]events.Option, error) {
	opts := []events.Option{
		events.WithLogger(events.NewZapLogger(log)),
	}
	if cfg.OrganizationID != "" {
		orgID := cfg.OrganizationID
		opts = append(opts, events.WithOrganizationIDResolver(func(context.Context) string {
			return orgID
		}))
	}
	if cfg.SchemasFile != "" {
		reg, err := events.LoadSchemaRegistry(cfg.SchemasFile)
		if err != nil {
			return nil, fmt.Errorf("load schemas: %w", err)
		}
		opts = append(opts, events.WithSchemaRegistry(reg))
	}
	return opts, nil
}

func buildPublisher(cfg *config.Config, opts []events.Option) (*events.EventPublisher, error) {
	switch cfg.Transport {
	case "amqp":
		return events.NewEventPublisher(events.BrokerConfig{
			URL:               cfg.BrokerURL,
			Exchange:          cfg.ExchangeName,
			RetryAttempts:     cfg.RetryAttempts,
			RetryDelaySeconds: cfg.RetryDelaySeconds,
		}, opts...)
	case "sns":
		return events.NewTopicEventPublisher(events.TopicConfig{
			TopicARN:          cfg.TopicARN,
			Region:            cfg.AWSRegion,
			RetryAttempts:     cfg.RetryAttempts,
			RetryDelaySeconds: cfg.RetryDelaySeconds,
		}, opts...)
	}
	return nil, fmt.Errorf("unsupported transport %q", cfg.Transport)
}

// verifyFanout probes every enabled destination declared in the
// destinations file.
func verifyFanout(ctx context.Context, cfg *config.Config, log *zap.Logger, probe map[string]any, opts []events.Option) error {
	reg, err := events.LoadDestinations(cfg.DestinationsFile)
	if err != nil {
		return fmt.Errorf("load destinations: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := events.BuildAll(events.DefaultBuilderRegistry(), enabled, opts...)
	if err != nil {
		return fmt.Errorf("build destinations: %w", err)
	}

	targets := make([]events.Publisher, 0, len(pubs))
	for _, p := range pubs {
		targets = append(targets, p)
	}
	fanout := events.NewFanout(targets)
	defer fanout.Close()

	delivered := fanout.Publish(ctx, "workout.created", probe)
	log.Info("fanout probe complete",
		zap.Int("destinations", fanout.Size()),
		zap.Int("delivered", delivered),
	)
	if delivered != fanout.Size() {
		return fmt.Errorf("probe reached %d of %d destinations", delivered, fanout.Size())
	}
	return nil
}
