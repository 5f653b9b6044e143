package app

import (
	"fmt"

	"complaint-service/internal/common/logging"
	"complaint-service/internal/storage"
)

func (app *App) initializeStorage() error {
	switch app.Config.DatabaseType {
	case "postgres":
		app.Logger.Info("Database: PostgreSQL",
			logging.String("host", app.Config.PostgresHost),
			logging.Int("port", app.Config.PostgresPort),
			logging.String("database", app.Config.PostgresDB),
		)
	default:
		app.Logger.Info("Database: SQLite", logging.String("path", app.Config.DatabasePath))
	}

	store, err := storage.NewStorage(app.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.Storage = store
	return nil
}
