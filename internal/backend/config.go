package backend

import (
	"fmt"

	"einkauf/internal/config"
)

// Config holds what the factory needs to build a backend.
type Config struct {
	Type Type

	// Local backend
	DataDir string

	// Remote backend
	SQLiteDBPath string

	// AMQP (optional on either backend)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := Type(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		DataDir:      appConfig.DataDir,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate checks the backend configuration.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case LocalBackend:
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for local backend")
		}
	case RemoteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for remote backend")
		}
		// The local store still opens in remote mode for migrations, so
		// a data dir is needed there too.
		if c.DataDir == "" {
			return fmt.Errorf("data directory is required for migration source")
		}
	}

	return nil
}
