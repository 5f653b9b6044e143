package app

import (
	"complaint-service/internal/common/logging"
	"complaint-service/internal/ratelimit"
)

// initializeRateLimiter builds the submission limiter. Without Redis every
// process keeps its own counters.
func (app *App) initializeRateLimiter() {
	app.RateLimiter = ratelimit.NewLimiter(app.RedisClient, &ratelimit.Config{
		DefaultLimit:  app.Config.RateLimitDefault,
		DefaultWindow: app.Config.RateLimitWindow,
		Enabled:       app.Config.RateLimitEnabled,
	}, app.Logger)

	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return
	}

	backend := "local"
	if app.RedisClient != nil {
		backend = "redis"
	}
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Int("limit", app.Config.RateLimitDefault),
		logging.String("window", app.Config.RateLimitWindow.String()),
		logging.String("backend", backend),
	)
}
