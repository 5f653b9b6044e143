package postgres

import (
	"fmt"

	"complaint-service/internal/storage"
)

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Storage, error) {
	switch c := config.(type) {
	case *Config:
		return NewAdapter(c)
	case storage.Options:
		return NewAdapter(&Config{
			Host:     c.Host,
			Port:     c.Port,
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
			SSLMode:  c.SSLMode,
		})
	default:
		return nil, fmt.Errorf("invalid config type for PostgreSQL storage")
	}
}

func (f *Factory) GetType() string {
	return "postgres"
}

func init() {
	storage.Register("postgres", &Factory{})
}
