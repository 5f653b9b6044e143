package enrichers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "complaint-service/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeoClient(t *testing.T, url string, attempts int, sleeps *sleepRecorder) *GeoLookupClient {
	logger, _ := observedLogger(t)
	return NewGeoLookupClient(GeoConfig{
		URL:     url,
		APIKey:  "dadata-key",
		Timeout: time.Second,
		Backoff: sleeps.backoff(attempts),
	}, nil, logger)
}

func TestValidateIP(t *testing.T) {
	tests := []struct {
		ip    string
		valid bool
	}{
		{"8.8.8.8", true},
		{"0.0.0.0", true},
		{"255.255.255.255", true},
		{"127.0.0.1", true},
		{"010.001.1.1", true},
		{"", false},
		{"999.1.1.1", false},
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"1..3.4", false},
		{"a.b.c.d", false},
		{"-1.2.3.4", false},
		{"+1.2.3.4", false},
		{" 1.2.3.4", false},
		{"1.2.3.256", false},
		{"2001:db8::1", false},
		{"1234.123.123.12", false},
		{"0001.0002.0003.4", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := ValidateIP(tt.ip)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		})
	}
}

func TestResolve_InvalidInputMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	server := scriptedServer(t, &calls, predictions(`{}`))
	defer server.Close()

	client := newTestGeoClient(t, server.URL, 3, &sleepRecorder{})

	for _, ip := range []string{"", "999.1.1.1", "localhost", "1.2.3.4.5.6.7.8"} {
		_, err := client.Resolve(context.Background(), ip)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation), ip)
	}
	assert.Zero(t, calls.Load())
}

func TestResolve_Loopback(t *testing.T) {
	var calls atomic.Int32
	server := scriptedServer(t, &calls, predictions(`{}`))
	defer server.Close()

	client := newTestGeoClient(t, server.URL, 3, &sleepRecorder{})

	result, err := client.Resolve(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, GeoResult{Country: "LOCALHOST", City: "LOCALHOST"}, result)
	assert.Zero(t, calls.Load())
}

func TestResolve_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token dadata-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		var body geoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "46.226.227.20", body.IP)
		assert.Equal(t, "ru", body.Language)

		w.Write([]byte(`{"location":{"value":"г Краснодар","data":{"country":"Россия","city":"Краснодар"}}}`))
	}))
	defer server.Close()

	client := newTestGeoClient(t, server.URL, 3, &sleepRecorder{})

	result, err := client.Resolve(context.Background(), "46.226.227.20")
	require.NoError(t, err)
	assert.Equal(t, GeoResult{Country: "Россия", City: "Краснодар"}, result)
}

func TestResolve_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want GeoResult
	}{
		{"missing city", `{"location":{"data":{"country":"Россия"}}}`, GeoResult{Country: "Россия", City: GeoUnknown}},
		{"null country", `{"location":{"data":{"country":null,"city":"Сочи"}}}`, GeoResult{Country: GeoUnknown, City: "Сочи"}},
		{"null location", `{"location":null}`, UnknownLocation},
		{"location without data", `{"location":{"value":"?"}}`, UnknownLocation},
		{"not json", `oops`, UnknownLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := scriptedServer(t, &calls, predictions(tt.body))
			defer server.Close()

			sleeps := &sleepRecorder{}
			client := newTestGeoClient(t, server.URL, 3, sleeps)

			result, err := client.Resolve(context.Background(), "8.8.8.8")
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, sleeps.recorded())
		})
	}
}

func TestResolve_RetryThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := scriptedServer(t, &calls,
		status(http.StatusInternalServerError),
		predictions(`{"location":{"data":{"country":"Russia","city":"Moscow"}}}`),
	)
	defer server.Close()

	sleeps := &sleepRecorder{}
	client := newTestGeoClient(t, server.URL, 3, sleeps)

	result, err := client.Resolve(context.Background(), "8.8.4.4")
	require.NoError(t, err)
	assert.Equal(t, GeoResult{Country: "Russia", City: "Moscow"}, result)
	assert.Equal(t, []time.Duration{testBaseDelay}, sleeps.recorded())
}

func TestResolve_TerminalAndExhausted(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCalls int32
	}{
		{"forbidden is terminal", http.StatusForbidden, 1},
		{"bad request is terminal", http.StatusBadRequest, 1},
		{"unexpected status stops", http.StatusServiceUnavailable, 1},
		{"too many requests exhausts", http.StatusTooManyRequests, 4},
		{"unauthorized exhausts", http.StatusUnauthorized, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := scriptedServer(t, &calls, status(tt.code))
			defer server.Close()

			client := newTestGeoClient(t, server.URL, 4, &sleepRecorder{})

			result, err := client.Resolve(context.Background(), "8.8.8.8")
			require.NoError(t, err)
			assert.Equal(t, UnknownLocation, result)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestResolve_NetworkErrorExhausts(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	sleeps := &sleepRecorder{}
	client := newTestGeoClient(t, url, 3, sleeps)

	result, err := client.Resolve(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, UnknownLocation, result)
	assert.Equal(t, linearDelays(3), sleeps.recorded())
}
