package app

import (
	httpclient "complaint-service/internal/common/http"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
	"complaint-service/internal/enrichers"
	"complaint-service/internal/enrichment"
)

// initializeEnrichment builds the provider clients and the orchestrator.
// All providers share one HTTP client; each request is bounded by
// HTTP_CONNECTION_TIMEOUT.
func (app *App) initializeEnrichment() {
	cfg := app.Config
	client := httpclient.NewHTTPClient(httpclient.WithTimeout(cfg.HTTPTimeout))

	backoff := utils.LinearBackoff{
		Attempts:  cfg.HTTPRetries,
		BaseDelay: cfg.HTTPRetryDelay,
		Sleep:     utils.SleepContext,
	}

	credentials := enrichers.NewCredentialCache(enrichers.CredentialConfig{
		OAuthToken: cfg.YandexOAuthToken,
		TokenURL:   cfg.YandexIAMURL,
		Grace:      cfg.IAMTokenGrace,
		Timeout:    cfg.HTTPTimeout,
	}, client, app.Logger)

	app.Classifier = enrichers.NewClassificationClient(enrichers.ClassifierConfig{
		URL:       cfg.YandexClassifyURL,
		CatalogID: cfg.YandexCatalogID,
		Model:     cfg.YandexModel,
		Timeout:   cfg.HTTPTimeout,
		Backoff:   backoff,
	}, client, credentials, app.Logger)

	app.Geo = enrichers.NewGeoLookupClient(enrichers.GeoConfig{
		URL:      cfg.DadataURL,
		APIKey:   cfg.DadataAPIKey,
		Language: cfg.GeoLanguage,
		Timeout:  cfg.HTTPTimeout,
		Backoff:  backoff,
	}, client, app.Logger)

	app.Enrichment = enrichment.NewOrchestrator(app.Storage, app.Classifier, app.Geo, enrichment.Prompts{
		Sentiment: cfg.SentimentPrompt,
		Category:  cfg.CategoryPrompt,
	}, app.Logger)

	for _, warning := range cfg.Warnings() {
		app.Logger.Warn(warning)
	}
	app.Logger.Info("Enrichment: Ready",
		logging.Int("attempts", backoff.Attempts),
		logging.String("retry_delay", backoff.BaseDelay.String()),
	)
}
