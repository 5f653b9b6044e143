package enrichers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// iamServer issues tokens named t1, t2, ... with the expiry returned by expiry(n)
func iamServer(t *testing.T, hits *atomic.Int32, expiry func(n int32) time.Time) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "oauth-secret", body["yandexPassportOauthToken"])

		json.NewEncoder(w).Encode(map[string]string{
			"iamToken":  fmt.Sprintf("t%d", n),
			"expiresAt": expiry(n).UTC().Format(time.RFC3339Nano),
		})
	}))
}

func newTestCredentialCache(t *testing.T, url string) *CredentialCache {
	logger, _ := observedLogger(t)
	return NewCredentialCache(CredentialConfig{
		OAuthToken: "oauth-secret",
		TokenURL:   url,
		Grace:      time.Minute,
		Timeout:    time.Second,
	}, nil, logger)
}

func TestCredentialCache_CachesToken(t *testing.T) {
	var hits atomic.Int32
	server := iamServer(t, &hits, func(int32) time.Time { return time.Now().Add(12 * time.Hour) })
	defer server.Close()

	cache := newTestCredentialCache(t, server.URL)

	token, ok := cache.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "t1", token)

	token, ok = cache.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "t1", token)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCredentialCache_RefreshesInsideGraceWindow(t *testing.T) {
	base := time.Date(2025, 7, 10, 3, 0, 0, 0, time.UTC)
	var hits atomic.Int32
	server := iamServer(t, &hits, func(n int32) time.Time {
		if n == 1 {
			return base.Add(2 * time.Minute)
		}
		return base.Add(12 * time.Hour)
	})
	defer server.Close()

	cache := newTestCredentialCache(t, server.URL)
	now := base
	cache.now = func() time.Time { return now }

	token, ok := cache.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "t1", token)

	// 60s left equals the grace window: no longer handed out
	now = base.Add(time.Minute)
	token, ok = cache.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, "t2", token)
	assert.Equal(t, int32(2), hits.Load())

	now = base.Add(time.Hour)
	token, _ = cache.Token(context.Background())
	assert.Equal(t, "t2", token)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCredentialCache_FailureReturnsNone(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"internal"}`))
			return
		}
		fmt.Fprintf(w, `{"iamToken":"fresh","expiresAt":%q}`, time.Now().Add(time.Hour).Format(time.RFC3339Nano))
	}))
	defer server.Close()

	cache := newTestCredentialCache(t, server.URL)

	token, ok := cache.Token(context.Background())
	assert.False(t, ok)
	assert.Empty(t, token)

	fail.Store(false)
	token, ok = cache.Token(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)
}

func TestCredentialCache_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"iamToken":"no-expiry"}`))
	}))
	defer server.Close()

	cache := newTestCredentialCache(t, server.URL)
	_, ok := cache.Token(context.Background())
	assert.False(t, ok)
}

func TestCredentialCache_MissingSecretSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	server := iamServer(t, &hits, func(int32) time.Time { return time.Now().Add(time.Hour) })
	defer server.Close()

	logger, logs := observedLogger(t)
	cache := NewCredentialCache(CredentialConfig{TokenURL: server.URL}, nil, logger)

	_, ok := cache.Token(context.Background())
	assert.False(t, ok)
	assert.Zero(t, hits.Load())
	assert.Equal(t, 1, logs.FilterField(zapcoreString("action", actionRefreshCredential)).Len())
}

func TestCredentialCache_ConcurrentCallersShareOneRefresh(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		fmt.Fprintf(w, `{"iamToken":"shared","expiresAt":%q}`, time.Now().Add(time.Hour).Format(time.RFC3339Nano))
	}))
	defer server.Close()

	cache := newTestCredentialCache(t, server.URL)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _ = cache.Token(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, token := range tokens {
		assert.Equal(t, "shared", token)
	}
}
