package enrichers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"complaint-service/internal/circuitbreaker"
	apperrors "complaint-service/internal/common/errors"
	httpclient "complaint-service/internal/common/http"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
)

// DefaultIAMTokenURL exchanges an OAuth secret for a short-lived IAM token
const DefaultIAMTokenURL = "https://iam.api.cloud.yandex.net/iam/v1/tokens"

// DefaultCredentialGrace is how long before expiry a cached token stops
// being handed out.
const DefaultCredentialGrace = time.Minute

const actionRefreshCredential = "refresh_credential"

// CredentialConfig configures the IAM token exchange
type CredentialConfig struct {
	// OAuthToken is the long-lived secret sent to the identity service
	OAuthToken string
	// TokenURL defaults to DefaultIAMTokenURL
	TokenURL string
	// Grace defaults to DefaultCredentialGrace
	Grace time.Duration
	// Timeout bounds a single exchange request
	Timeout time.Duration
}

// CredentialCache owns the single cached IAM token of the process.
//
// Token never fails: when the token cannot be obtained it reports false
// and the caller treats the provider as unavailable for this attempt.
// Reads take a shared lock; a refresh holds the exclusive lock for the
// whole check-exchange-store sequence, so concurrent callers wait for one
// exchange instead of racing their own.
type CredentialCache struct {
	config  CredentialConfig
	client  *http.Client
	breaker *circuitbreaker.GoBreakerAdapter
	logger  logging.Logger
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

type iamTokenRequest struct {
	OAuthToken string `json:"yandexPassportOauthToken"`
}

type iamTokenResponse struct {
	IAMToken  string    `json:"iamToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewCredentialCache creates an empty cache; the first Token call performs
// the first exchange.
func NewCredentialCache(config CredentialConfig, client *http.Client, logger logging.Logger) *CredentialCache {
	if config.TokenURL == "" {
		config.TokenURL = DefaultIAMTokenURL
	}
	if config.Grace <= 0 {
		config.Grace = DefaultCredentialGrace
	}
	if client == nil {
		client = httpclient.NewHTTPClient()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &CredentialCache{
		config:  config,
		client:  client,
		breaker: circuitbreaker.NewGoBreaker("iam-token", circuitbreaker.CredentialConfig, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Token returns a bearer token whose remaining lifetime exceeds the grace
// window, refreshing the cache when needed.
func (c *CredentialCache) Token(ctx context.Context) (string, bool) {
	c.mu.RLock()
	if c.freshLocked() {
		token := c.token
		c.mu.RUnlock()
		return token, true
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// freshLocked reports whether the cached token is usable. Callers hold mu.
func (c *CredentialCache) freshLocked() bool {
	return c.token != "" && c.expiresAt.Sub(c.now()) > c.config.Grace
}

func (c *CredentialCache) refresh(ctx context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have refreshed while we waited for the lock
	if c.freshLocked() {
		return c.token, true
	}

	ev := logging.NewEvent(c.logger, utils.GenerateRequestID(), actionRefreshCredential)

	if c.config.OAuthToken == "" {
		ev.Warn(OutcomeTerminal, apperrors.ConfigError("OAuth token for the identity service is not configured"))
		return "", false
	}

	var issued iamTokenResponse
	err := c.breaker.Execute(ctx, func() error {
		var exchangeErr error
		issued, exchangeErr = c.exchange(ctx)
		return exchangeErr
	})
	if err != nil {
		ev.Warn(outcomeFor(err), err)
		return "", false
	}

	c.token = issued.IAMToken
	c.expiresAt = issued.ExpiresAt
	ev.Info(OutcomeSucceeded)

	return c.token, true
}

func (c *CredentialCache) exchange(ctx context.Context) (iamTokenResponse, error) {
	var issued iamTokenResponse

	resp, err := httpclient.PostJSON(ctx, c.client, c.config.TokenURL, nil,
		iamTokenRequest{OAuthToken: c.config.OAuthToken}, c.config.Timeout)
	if err != nil {
		return issued, err
	}
	if resp.StatusCode != http.StatusOK {
		return issued, statusError(resp)
	}
	if err := resp.DecodeJSON(&issued); err != nil {
		return issued, err
	}
	if issued.IAMToken == "" || issued.ExpiresAt.IsZero() {
		return issued, apperrors.InternalError("token response is missing iamToken or expiresAt", nil)
	}

	return issued, nil
}
