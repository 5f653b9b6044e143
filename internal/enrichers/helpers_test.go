package enrichers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testBaseDelay = 10 * time.Millisecond

type staticCredentials struct {
	token string
	ok    bool
	calls atomic.Int32
}

func (s *staticCredentials) Token(ctx context.Context) (string, bool) {
	s.calls.Add(1)
	return s.token, s.ok
}

// sleepRecorder replaces real backoff waits in tests
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func (r *sleepRecorder) backoff(attempts int) utils.LinearBackoff {
	return utils.LinearBackoff{Attempts: attempts, BaseDelay: testBaseDelay, Sleep: r.sleep}
}

// linearDelays returns the pauses expected between attempts
func linearDelays(attempts int) []time.Duration {
	var delays []time.Duration
	for k := 1; k < attempts; k++ {
		delays = append(delays, testBaseDelay*time.Duration(k))
	}
	return delays
}

func observedLogger(t *testing.T) (logging.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewZapLoggerFromCore(core), logs
}

func zapcoreString(key, value string) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringType, String: value}
}
