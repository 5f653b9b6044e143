package enrichers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentimentRequest = ClassificationRequest{
	Action:          "classify_sentiment",
	Text:            "The app crashes every time I open it",
	TaskDescription: "Determine the sentiment of the complaint",
	Labels:          []string{"positive", "negative", "neutral"},
	Default:         "unknown",
}

// scriptedServer answers call n with responses[n] (the last one repeats)
func scriptedServer(t *testing.T, calls *atomic.Int32, responses ...func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		responses[n](w)
	}))
}

func status(code int) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(code)
		w.Write([]byte(`{"message":"provider says no"}`))
	}
}

func predictions(body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func newTestClassifier(t *testing.T, url string, creds CredentialSource, attempts int, sleeps *sleepRecorder) *ClassificationClient {
	logger, _ := observedLogger(t)
	return NewClassificationClient(ClassifierConfig{
		URL:       url,
		CatalogID: "b1gcatalog",
		Timeout:   time.Second,
		Backoff:   sleeps.backoff(attempts),
	}, nil, creds, logger)
}

func TestClassify_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer iam-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cls://b1gcatalog/yandexgpt-lite/latest", body.ModelURI)
		assert.Equal(t, sentimentRequest.TaskDescription, body.TaskDescription)
		assert.Equal(t, sentimentRequest.Labels, body.Labels)
		assert.Equal(t, sentimentRequest.Text, body.Text)

		w.Write([]byte(`{"predictions":[{"label":"positive","confidence":0.1},{"label":"negative","confidence":0.8},{"label":"neutral","confidence":0.1}]}`))
	}))
	defer server.Close()

	sleeps := &sleepRecorder{}
	client := newTestClassifier(t, server.URL, &staticCredentials{token: "iam-token", ok: true}, 3, sleeps)

	assert.Equal(t, "negative", client.Classify(context.Background(), sentimentRequest))
	assert.Empty(t, sleeps.recorded())
}

func TestClassify_ResponseSelection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "highest confidence wins",
			body: `{"predictions":[{"label":"neutral","confidence":0.2},{"label":"positive","confidence":0.7}]}`,
			want: "positive",
		},
		{
			name: "first seen wins a tie",
			body: `{"predictions":[{"label":"neutral","confidence":0.5},{"label":"negative","confidence":0.5}]}`,
			want: "neutral",
		},
		{
			name: "label outside the set maps to default",
			body: `{"predictions":[{"label":"furious","confidence":0.9},{"label":"negative","confidence":0.1}]}`,
			want: "unknown",
		},
		{
			name: "empty prediction list maps to default",
			body: `{"predictions":[]}`,
			want: "unknown",
		},
		{
			name: "undecodable body maps to default",
			body: `<html>oops</html>`,
			want: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := scriptedServer(t, &calls, predictions(tt.body))
			defer server.Close()

			sleeps := &sleepRecorder{}
			client := newTestClassifier(t, server.URL, &staticCredentials{token: "tok", ok: true}, 3, sleeps)

			assert.Equal(t, tt.want, client.Classify(context.Background(), sentimentRequest))
			assert.Equal(t, int32(1), calls.Load(), "no retry for a 200 response")
			assert.Empty(t, sleeps.recorded())
		})
	}
}

func TestClassify_TerminalStatusesStopImmediately(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusBadGateway} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			server := scriptedServer(t, &calls, status(code))
			defer server.Close()

			sleeps := &sleepRecorder{}
			client := newTestClassifier(t, server.URL, &staticCredentials{token: "tok", ok: true}, 5, sleeps)

			assert.Equal(t, "unknown", client.Classify(context.Background(), sentimentRequest))
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, sleeps.recorded())
		})
	}
}

func TestClassify_RetryableStatusesExhaustAttempts(t *testing.T) {
	const attempts = 4
	for _, code := range []int{http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			var calls atomic.Int32
			server := scriptedServer(t, &calls, status(code))
			defer server.Close()

			sleeps := &sleepRecorder{}
			client := newTestClassifier(t, server.URL, &staticCredentials{token: "tok", ok: true}, attempts, sleeps)

			assert.Equal(t, "unknown", client.Classify(context.Background(), sentimentRequest))
			assert.Equal(t, int32(attempts), calls.Load())
			assert.Equal(t, linearDelays(attempts), sleeps.recorded())
		})
	}
}

func TestClassify_RecoversAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := scriptedServer(t, &calls,
		status(http.StatusTooManyRequests),
		status(http.StatusTooManyRequests),
		predictions(`{"predictions":[{"label":"neutral","confidence":0.2},{"label":"negative","confidence":0.9}]}`),
	)
	defer server.Close()

	sleeps := &sleepRecorder{}
	client := newTestClassifier(t, server.URL, &staticCredentials{token: "tok", ok: true}, 5, sleeps)

	assert.Equal(t, "negative", client.Classify(context.Background(), sentimentRequest))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay, 2 * testBaseDelay}, sleeps.recorded())
}

func TestClassify_MissingCredentialSkipsNetwork(t *testing.T) {
	const attempts = 3
	var calls atomic.Int32
	server := scriptedServer(t, &calls, predictions(`{"predictions":[{"label":"negative","confidence":1}]}`))
	defer server.Close()

	creds := &staticCredentials{ok: false}
	sleeps := &sleepRecorder{}
	client := newTestClassifier(t, server.URL, creds, attempts, sleeps)

	assert.Equal(t, "unknown", client.Classify(context.Background(), sentimentRequest))
	assert.Zero(t, calls.Load())
	assert.Equal(t, int32(attempts), creds.calls.Load())
	assert.Equal(t, linearDelays(attempts), sleeps.recorded())
}

func TestClassify_TimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	logger, _ := observedLogger(t)
	sleeps := &sleepRecorder{}
	client := NewClassificationClient(ClassifierConfig{
		URL:     server.URL,
		Timeout: 20 * time.Millisecond,
		Backoff: sleeps.backoff(2),
	}, nil, &staticCredentials{token: "tok", ok: true}, logger)

	assert.Equal(t, "unknown", client.Classify(context.Background(), sentimentRequest))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{testBaseDelay}, sleeps.recorded())
}

func TestClassify_LogEventsShareRequestID(t *testing.T) {
	var calls atomic.Int32
	server := scriptedServer(t, &calls,
		status(http.StatusTooManyRequests),
		predictions(`{"predictions":[{"label":"neutral","confidence":0.6}]}`),
	)
	defer server.Close()

	logger, logs := observedLogger(t)
	sleeps := &sleepRecorder{}
	client := NewClassificationClient(ClassifierConfig{URL: server.URL, Backoff: sleeps.backoff(3)}, nil,
		&staticCredentials{token: "tok", ok: true}, logger)

	require.Equal(t, "neutral", client.Classify(context.Background(), sentimentRequest))

	entries := logs.FilterField(zapcoreString("action", "classify_sentiment")).AllUntimed()
	require.Len(t, entries, 2)

	first, second := entries[0].ContextMap(), entries[1].ContextMap()
	assert.Equal(t, first["request_id"], second["request_id"])
	assert.Equal(t, OutcomeRetryable, first["outcome"])
	assert.Contains(t, first["error"], "429")
	assert.Equal(t, OutcomeSucceeded, second["outcome"])
	assert.NotContains(t, second, "error")
}

func TestBestPrediction(t *testing.T) {
	_, ok := bestPrediction(nil)
	assert.False(t, ok)

	best, ok := bestPrediction([]prediction{{"a", 0.3}, {"b", 0.3}, {"c", 0.2}})
	require.True(t, ok)
	assert.Equal(t, "a", best.Label)
}
