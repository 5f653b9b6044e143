package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxKeys       = 10000
	defaultCleanupPeriod = 5 * time.Minute
)

// localLimiter keeps one token bucket per key in process memory. It is
// used when Redis is not configured and whenever Redis fails.
type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry

	maxKeys       int
	cleanupPeriod time.Duration
	lastCleanup   time.Time
	now           func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// newLocalLimiter allows bursts of up to limit hits, refilled evenly
// across window.
func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limit:         rate.Limit(float64(limit) / window.Seconds()),
		burst:         limit,
		limiters:      make(map[string]*limiterEntry),
		maxKeys:       defaultMaxKeys,
		cleanupPeriod: defaultCleanupPeriod,
		lastCleanup:   time.Now(),
		now:           time.Now,
	}
}

// allow takes one token for key and returns the tokens left
func (l *localLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) > l.cleanupPeriod {
		l.cleanup(now)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst), lastUsed: now}
		l.limiters[key] = entry

		if len(l.limiters) > l.maxKeys {
			l.cleanup(now)
		}
	} else {
		entry.lastUsed = now
	}

	allowed := entry.limiter.AllowN(now, 1)
	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// cleanup removes limiters that haven't been used recently. Callers hold mu.
func (l *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.cleanupPeriod)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = now
}

func (l *localLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
