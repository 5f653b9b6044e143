package app

import (
	"complaint-service/internal/common/logging"
	"complaint-service/internal/config"
	"complaint-service/internal/enrichers"
	"complaint-service/internal/enrichment"
	"complaint-service/internal/ratelimit"
	"complaint-service/internal/redis"
	"complaint-service/internal/storage"

	// Register the storage adapters with storage.DefaultRegistry
	_ "complaint-service/internal/storage/postgres"
	_ "complaint-service/internal/storage/sqlite"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Storage     storage.Storage
	RedisClient *redis.Client
	RateLimiter *ratelimit.Limiter
	Classifier  *enrichers.ClassificationClient
	Geo         *enrichers.GeoLookupClient
	Enrichment  *enrichment.Orchestrator
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
	}

	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, the limiter works per process without it
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Err(err))
	}

	app.initializeRateLimiter()
	app.initializeEnrichment()

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Storage != nil {
		app.Storage.Close()
	}
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
