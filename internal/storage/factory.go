package storage

import (
	"fmt"

	"complaint-service/internal/common/errors"
	"complaint-service/internal/config"
)

// Options is the database-agnostic connection description built from the
// service configuration. Each adapter's factory converts it to its own
// Config.
type Options struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

func (o Options) Validate() error {
	if o.Type == "" {
		return fmt.Errorf("storage type is required")
	}
	return nil
}

func (o Options) GetType() string {
	return o.Type
}

func (o Options) GetConnectionString() string {
	if o.Type == "sqlite" {
		return o.Path
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s", o.Host, o.Port, o.Database)
}

// NewStorage opens the database selected by DATABASE_TYPE. The matching
// adapter package must be imported for its factory to be registered.
func NewStorage(cfg *config.Config) (Storage, error) {
	var opts Options

	switch cfg.DatabaseType {
	case "sqlite":
		opts = Options{Type: "sqlite", Path: cfg.DatabasePath}
	case "postgres":
		opts = Options{
			Type:     "postgres",
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			Database: cfg.PostgresDB,
			Username: cfg.PostgresUser,
			Password: cfg.PostgresPassword,
			SSLMode:  cfg.PostgresSSLMode,
		}
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unsupported database type: %s", cfg.DatabaseType))
	}

	return Create(cfg.DatabaseType, opts)
}
