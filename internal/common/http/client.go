// Package http builds the outbound HTTP clients used to reach the
// classification and geolocation providers, and performs the single JSON
// POST that every provider call consists of.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "complaint-service/internal/common/errors"
)

// maxResponseBody caps how much of a provider response is read
const maxResponseBody = 1 << 20

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		},
	}
}

// Response is a fully read provider response
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.InternalError("failed to decode response body", err)
	}
	return nil
}

// PostJSON sends payload as a JSON POST bounded by timeout and reads the
// whole response. Any status is returned as a Response; only transport
// failures produce an error, typed as timeout or connection so callers
// can decide whether to retry.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload interface{}, timeout time.Duration) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.InternalError("failed to encode request body", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.InternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, transportError(url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Duration:   time.Since(start),
	}, nil
}

func transportError(url string, err error) error {
	if IsTimeout(err) {
		return apperrors.TimeoutError(fmt.Sprintf("POST %s", url), err)
	}
	return apperrors.ConnectionError(fmt.Sprintf("POST %s failed", url), err)
}

// IsTimeout reports whether err stems from an exceeded deadline
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
