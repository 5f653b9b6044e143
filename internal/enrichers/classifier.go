package enrichers

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	apperrors "complaint-service/internal/common/errors"
	httpclient "complaint-service/internal/common/http"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
)

const (
	// DefaultClassifyURL is the few-shot text classification endpoint
	DefaultClassifyURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/fewShotTextClassification"
	// DefaultClassifierModel is appended to the catalog in the model URI
	DefaultClassifierModel = "yandexgpt-lite/latest"
)

// CredentialSource supplies bearer tokens; ok is false when none is available.
type CredentialSource interface {
	Token(ctx context.Context) (token string, ok bool)
}

// ClassificationRequest is built fresh for every call.
type ClassificationRequest struct {
	// Action names the call in log events, e.g. "classify_sentiment"
	Action          string
	Text            string
	TaskDescription string
	// Labels is the non-empty set of acceptable answers; order is irrelevant
	Labels []string
	// Default is returned whenever no label from Labels can be obtained
	Default string
}

// ClassifierConfig configures a ClassificationClient
type ClassifierConfig struct {
	URL       string
	CatalogID string
	Model     string
	// Timeout bounds each provider request
	Timeout time.Duration
	Backoff utils.LinearBackoff
}

// ClassificationClient picks one label for a text using the hosted
// few-shot classifier.
type ClassificationClient struct {
	config      ClassifierConfig
	client      *http.Client
	credentials CredentialSource
	logger      logging.Logger
}

type prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type classifyRequest struct {
	ModelURI        string   `json:"modelUri"`
	TaskDescription string   `json:"taskDescription"`
	Labels          []string `json:"labels"`
	Text            string   `json:"text"`
}

type classifyResponse struct {
	Predictions []prediction `json:"predictions"`
}

// NewClassificationClient creates a classifier authenticated through credentials
func NewClassificationClient(config ClassifierConfig, client *http.Client, credentials CredentialSource, logger logging.Logger) *ClassificationClient {
	if config.URL == "" {
		config.URL = DefaultClassifyURL
	}
	if config.Model == "" {
		config.Model = DefaultClassifierModel
	}
	if client == nil {
		client = httpclient.NewHTTPClient()
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &ClassificationClient{
		config:      config,
		client:      client,
		credentials: credentials,
		logger:      logger,
	}
}

// Classify returns a member of req.Labels or req.Default. It never fails.
func (c *ClassificationClient) Classify(ctx context.Context, req ClassificationRequest) string {
	ev := logging.NewEvent(c.logger, utils.GenerateRequestID(), req.Action)

	label, ok := runAttempts(ctx, c.config.Backoff, ev, func(ctx context.Context) (string, error) {
		return c.attempt(ctx, ev, req)
	})
	if !ok {
		return req.Default
	}
	return label
}

func (c *ClassificationClient) attempt(ctx context.Context, ev *logging.Event, req ClassificationRequest) (string, error) {
	token, ok := c.credentials.Token(ctx)
	if !ok {
		return "", errCredentialUnavailable()
	}

	payload := classifyRequest{
		ModelURI:        c.modelURI(),
		TaskDescription: req.TaskDescription,
		Labels:          req.Labels,
		Text:            req.Text,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	resp, err := httpclient.PostJSON(ctx, c.client, c.config.URL, headers, payload, c.config.Timeout)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var body classifyResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return "", err
	}
	best, ok := bestPrediction(body.Predictions)
	if !ok {
		return "", apperrors.InternalError("classifier returned no predictions", nil)
	}

	if !slices.Contains(req.Labels, best.Label) {
		ev.Warn(OutcomeLabelOutsideSet, fmt.Errorf("label %q is not one of %v", best.Label, req.Labels))
		return req.Default, nil
	}
	return best.Label, nil
}

func (c *ClassificationClient) modelURI() string {
	return fmt.Sprintf("cls://%s/%s", c.config.CatalogID, c.config.Model)
}

// bestPrediction returns the highest-confidence prediction; the first one
// seen wins a tie.
func bestPrediction(predictions []prediction) (prediction, bool) {
	if len(predictions) == 0 {
		return prediction{}, false
	}
	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Confidence > best.Confidence {
			best = p
		}
	}
	return best, true
}
