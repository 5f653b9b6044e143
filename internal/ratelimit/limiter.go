// Package ratelimit limits how often a single client may submit complaints.
// Counters live in Redis when it is configured so every instance shares
// them; otherwise, and whenever Redis errors, an in-process token bucket
// takes over.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"complaint-service/internal/common/errors"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
	"complaint-service/internal/redis"
)

type Limiter struct {
	redis  *redis.Client
	local  *localLimiter
	config *Config
	logger logging.Logger
}

type Config struct {
	DefaultLimit  int           `json:"default_limit"`
	DefaultWindow time.Duration `json:"default_window"`
	Enabled       bool          `json:"enabled"`
}

type RateLimit struct {
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
	Remaining int           `json:"remaining"`
	Allowed   bool          `json:"allowed"`
	ResetTime time.Time     `json:"reset_time"`
}

// NewLimiter creates a limiter backed by redisClient, which may be nil.
func NewLimiter(redisClient *redis.Client, config *Config, logger logging.Logger) *Limiter {
	if config == nil {
		config = &Config{
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			Enabled:       true,
		}
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Limiter{
		redis:  redisClient,
		local:  newLocalLimiter(config.DefaultLimit, config.DefaultWindow),
		config: config,
		logger: logger,
	}
}

// CheckDefaultLimit records one hit for key against the configured limit.
func (l *Limiter) CheckDefaultLimit(ctx context.Context, key string) (*RateLimit, error) {
	limit, window := l.config.DefaultLimit, l.config.DefaultWindow
	result := &RateLimit{
		Limit:     limit,
		Window:    window,
		Remaining: limit,
		Allowed:   true,
		ResetTime: time.Now().Add(window),
	}
	if !l.config.Enabled {
		return result, nil
	}

	if l.redis != nil {
		allowed, current, err := l.redis.CheckRateLimit(ctx, "rate_limit:"+key, limit, window)
		if err == nil {
			result.Allowed = allowed
			result.Remaining = max(limit-current-1, 0)
			return result, nil
		}
		l.logger.Warn("Redis rate limit check failed, using local limiter",
			logging.Err(errors.InternalError("failed to check rate limit", err)),
			logging.String("key", key))
	}

	result.Allowed, result.Remaining = l.local.allow(key)
	return result, nil
}

// HTTPMiddleware rejects requests over the limit with 429. Requests whose
// key is empty are not limited.
func (l *Limiter) HTTPMiddleware(keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			rateLimit, err := l.CheckDefaultLimit(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rateLimit.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rateLimit.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(rateLimit.ResetTime.Unix(), 10))

			if !rateLimit.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimit.Window.Seconds())))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey keys requests by the socket peer address
func IPBasedKey(r *http.Request) string {
	return fmt.Sprintf("ip:%s", utils.ClientIP(r))
}

// MethodIPKey limits only the given method, leaving other methods on the
// same route unrestricted.
func MethodIPKey(method string) func(*http.Request) string {
	return func(r *http.Request) string {
		if r.Method != method {
			return ""
		}
		return fmt.Sprintf("%s:%s", method, IPBasedKey(r))
	}
}
