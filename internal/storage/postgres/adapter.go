package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"complaint-service/internal/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS complaints (
		id BIGSERIAL PRIMARY KEY,
		text VARCHAR(1000) NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'open',
		"timestamp" TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sentiment VARCHAR(10) NOT NULL DEFAULT 'unknown',
		category VARCHAR(20) NOT NULL DEFAULT 'other',
		ip_address VARCHAR(15),
		geo_country VARCHAR(50),
		geo_city VARCHAR(50)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_timestamp ON complaints ("timestamp")`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_ip_address ON complaints (ip_address)`,
}

// Adapter is the PostgreSQL-backed complaint store
type Adapter struct {
	*storage.SQLStore
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	db, err := sql.Open("pgx", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := storage.NewSQLStore(db, storage.Dialect{
		Name:        "postgres",
		Placeholder: storage.DollarPlaceholder,
		Migrations:  migrations,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Adapter{SQLStore: store, config: config}, nil
}
