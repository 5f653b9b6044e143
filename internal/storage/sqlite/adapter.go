package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"complaint-service/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteTime matches the layout CURRENT_TIMESTAMP writes, so timestamp
// filters compare correctly as text.
const sqliteTime = "2006-01-02 15:04:05"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS complaints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text VARCHAR(1000) NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'open',
		"timestamp" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		sentiment VARCHAR(10) NOT NULL DEFAULT 'unknown',
		category VARCHAR(20) NOT NULL DEFAULT 'other',
		ip_address VARCHAR(15),
		geo_country VARCHAR(50),
		geo_city VARCHAR(50)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_timestamp ON complaints ("timestamp")`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_ip_address ON complaints (ip_address)`,
}

// Adapter is the SQLite-backed complaint store
type Adapter struct {
	*storage.SQLStore
	config *Config
}

func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; enrichment updates arrive concurrently
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := storage.NewSQLStore(db, storage.Dialect{
		Name:        "sqlite",
		Placeholder: storage.QuestionPlaceholder,
		BindTime: func(t time.Time) interface{} {
			return t.UTC().Format(sqliteTime)
		},
		Migrations: migrations,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Adapter{SQLStore: store, config: config}, nil
}

type Factory struct{}

func (f *Factory) Create(config storage.StorageConfig) (storage.Storage, error) {
	switch c := config.(type) {
	case *Config:
		return NewAdapter(c)
	case storage.Options:
		return NewAdapter(&Config{DatabasePath: c.Path})
	default:
		return nil, fmt.Errorf("invalid config type for SQLite storage")
	}
}

func (f *Factory) GetType() string {
	return "sqlite"
}

func init() {
	storage.Register("sqlite", &Factory{})
}
