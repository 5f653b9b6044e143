package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"complaint-service/internal/common/logging"
	"complaint-service/internal/handlers"
	"complaint-service/internal/server"
)

// Handler builds the HTTP API on top of the initialized components
func (app *App) Handler() http.Handler {
	var redisHealth handlers.HealthChecker
	if app.RedisClient != nil {
		redisHealth = app.RedisClient
	}

	h := handlers.New(
		app.Storage,
		app.Enrichment,
		app.Classifier,
		app.Config,
		redisHealth,
		app.Logger,
	)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.RateLimiter)
	return router
}

// RunServer creates the HTTP server with all handlers configured
func (app *App) RunServer() *server.Server {
	return server.New(app.Handler(), app.Config.Port, app.Config.TLSCertFile, app.Config.TLSKeyFile)
}

// Shutdown waits for scheduled enrichment to finish. Units still running
// when the timeout elapses are abandoned and their complaints keep the
// default labels.
func (app *App) Shutdown(ctx context.Context) {
	timeout := app.Config.EnrichmentShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	if !app.Enrichment.Wait(timeout) {
		app.Logger.Warn("Enrichment still running at shutdown",
			logging.String("waited", timeout.String()))
		return
	}
	app.Logger.Info("Enrichment drained")
}
