package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowsmith/pkg/channels/gochannel"
	"github.com/dukex/flowsmith/pkg/channels/kafka"
	"github.com/dukex/flowsmith/pkg/config"
	"github.com/dukex/flowsmith/pkg/eventbus"
)

const serviceName = "flowsmith"

// NewEventBus creates the deployment event bus selected by provider
// (none, memory or kafka).
//
//nolint:ireturn // callers only need the interface
func NewEventBus(provider string, brokers []string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "", config.BusNone:
		return eventbus.Discard{}, nil
	case config.BusMemory:
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case config.BusKafka:
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), brokers, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("%w: unsupported event bus provider %q", config.ErrInvalidConfig, provider)
	}
}
