package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "complaint-service/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	client := NewHTTPClient(WithTimeout(5 * time.Second))

	assert.Equal(t, 5*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 100, transport.MaxIdleConns)
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "8.8.8.8", payload["ip"])

		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := PostJSON(context.Background(), server.Client(), server.URL,
		map[string]string{"Authorization": "Token secret"},
		map[string]string{"ip": "8.8.8.8"}, time.Second)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	var decoded struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.DecodeJSON(&decoded))
	assert.True(t, decoded.OK)
}

func TestPostJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := PostJSON(context.Background(), server.Client(), server.URL, nil, map[string]string{}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeTimeout))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestPostJSON_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := PostJSON(context.Background(), http.DefaultClient, url, nil, map[string]string{}, time.Second)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConnection))
}

func TestResponse_DecodeJSONFailure(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte("<html>")}
	var v map[string]interface{}
	err := resp.DecodeJSON(&v)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInternal))
}
