package utils

import (
	"context"
	"fmt"
	"time"
)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case. It is swappable so tests can record delays instead of
// waiting them out.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// LinearBackoff describes a bounded retry schedule where the pause after
// failed attempt k is BaseDelay*k.
//
// For Attempts = 3 and BaseDelay = 2s the caller waits 2s after the first
// failure and 4s after the second; there is no pause after the final
// attempt.
type LinearBackoff struct {
	// Attempts is the total number of attempts, including the first one
	Attempts int

	// BaseDelay is multiplied by the number of the attempt that just failed
	BaseDelay time.Duration

	// Sleep performs the wait; nil means SleepContext
	Sleep Sleeper
}

// Delay returns the pause that follows failed attempt k (1-based).
// It is zero for the final attempt and for out-of-range values.
func (b LinearBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 || attempt >= b.Attempts {
		return 0
	}
	return b.BaseDelay * time.Duration(attempt)
}

// HasNext reports whether another attempt follows attempt k
func (b LinearBackoff) HasNext(attempt int) bool {
	return attempt < b.Attempts
}

// Wait pauses for Delay(attempt). A cancelled ctx ends the wait early
// and is reported as an error.
func (b LinearBackoff) Wait(ctx context.Context, attempt int) error {
	sleep := b.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, b.Delay(attempt))
}
