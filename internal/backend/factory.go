package backend

import (
	"context"
	"fmt"
	"log/slog"

	"einkauf/internal/amqp"
	"einkauf/internal/localstore"
	"einkauf/internal/remote"
)

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(_ context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	local, err := localstore.Open(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	result := &Result{
		Type:    config.Type,
		Local:   local,
		Cleanup: func() error { return nil },
	}

	if config.Type == RemoteBackend {
		gateway, err := remote.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open remote gateway: %w", err)
		}
		result.Gateway = gateway
		result.Cleanup = gateway.Close
		f.logger.Info("Initialized remote backend", "db_path", config.SQLiteDBPath)
	} else {
		f.logger.Info("Initialized local backend", "data_directory", config.DataDir)
	}

	// AMQP is optional on either backend; the service degrades to not
	// publishing events when the broker is unreachable.
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			result.AMQP = amqpClient
			gatewayCleanup := result.Cleanup
			result.Cleanup = func() error {
				amqpClient.Close()
				return gatewayCleanup()
			}
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return result, nil
}
