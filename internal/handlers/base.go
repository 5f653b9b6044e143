// Package handlers implements the complaint REST API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"complaint-service/internal/common/errors"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/validation"
	"complaint-service/internal/config"
	"complaint-service/internal/enrichers"
	"complaint-service/internal/storage"
)

// Scheduler starts background enrichment of a stored complaint
type Scheduler interface {
	Schedule(complaint *storage.Complaint)
}

// Classifier is used for the spam check on submission
type Classifier interface {
	Classify(ctx context.Context, req enrichers.ClassificationRequest) string
}

// HealthChecker is an optional dependency reported by /health
type HealthChecker interface {
	Health() error
}

type Handlers struct {
	storage    storage.Storage
	enrichment Scheduler
	classifier Classifier
	config     *config.Config
	redis      HealthChecker
	logger     logging.Logger
}

// New wires the API. redis may be nil when Redis is not configured.
func New(store storage.Storage, enrichment Scheduler, classifier Classifier, cfg *config.Config, redis HealthChecker, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		storage:    store,
		enrichment: enrichment,
		classifier: classifier,
		config:     cfg,
		redis:      redis,
		logger:     logger,
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Detail string                       `json:"detail"`
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeValidation reports every failing field of payload
func writeValidation(w http.ResponseWriter, result *validation.ValidationResult) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Detail: "invalid request",
		Errors: result.Errors,
	})
}

// writeError maps an error from storage onto a status code
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch errors.GetType(err) {
	case errors.ErrTypeNotFound:
		writeDetail(w, http.StatusNotFound, "complaint not found")
	case errors.ErrTypeValidation:
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithContext(r.Context()).Error("Request failed", err,
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path))
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
