package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
	"complaint-service/internal/common/validation"
	"complaint-service/internal/enrichers"
	"complaint-service/internal/storage"
)

const (
	LabelSpam    = "spam"
	LabelNotSpam = "not_spam"

	ActionDetectSpam = "detect_spam"

	defaultListLimit = 50

	defaultSpamCheckTimeout = 10 * time.Second
)

type CreateComplaintRequest struct {
	Text     string `json:"text" validate:"required,not_blank,min=10,max=1000"`
	Category string `json:"category" validate:"omitempty,oneof=technical payment other"`
}

type UpdateComplaintRequest struct {
	Text   *string `json:"text" validate:"omitempty,not_blank,min=10,max=1000"`
	Status *string `json:"status" validate:"omitempty,oneof=open closed"`
}

// ListComplaintsQuery holds the parsed query string of the list endpoint
type ListComplaintsQuery struct {
	Category  string `json:"category" validate:"omitempty,oneof=technical payment other"`
	Status    string `json:"status" validate:"omitempty,oneof=open closed"`
	Sentiment string `json:"sentiment" validate:"omitempty,oneof=positive negative neutral unknown"`
	StartDate string `json:"start_date" validate:"omitempty,query_timestamp"`
	EndDate   string `json:"end_date" validate:"omitempty,query_timestamp"`
	Offset    int    `json:"offset" validate:"min=0"`
	Limit     int    `json:"limit" validate:"min=1,max=100"`
}

// CreateComplaint registers a complaint and schedules its enrichment
// @Summary Create a complaint
// @Description Rejects spam, stores the complaint with the caller's IP and enriches it in the background
// @Tags complaints
// @Accept json
// @Produce json
// @Param complaint body CreateComplaintRequest true "Complaint"
// @Success 201 {object} storage.Complaint
// @Failure 400 {object} ErrorResponse "Invalid payload or spam"
// @Failure 429 {string} string "Rate limit exceeded"
// @Router /complaint/ [post]
func (h *Handlers) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if result := validation.ValidateStructResult(req); !result.Valid {
		writeValidation(w, result)
		return
	}

	if h.isSpam(r, req.Text) {
		writeDetail(w, http.StatusBadRequest, "spam detected in the complaint")
		return
	}

	complaint, err := h.storage.CreateComplaint(r.Context(), storage.NewComplaint{
		Text:      req.Text,
		Category:  req.Category,
		IPAddress: callerIP(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.enrichment.Schedule(complaint)
	writeJSON(w, http.StatusCreated, complaint)
}

// isSpam runs within SPAM_CHECK_TIMEOUT; a check that runs out of time
// falls back to not_spam so the submission is still answered.
func (h *Handlers) isSpam(r *http.Request, text string) bool {
	timeout := h.config.SpamCheckTimeout
	if timeout <= 0 {
		timeout = defaultSpamCheckTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	label := h.classifier.Classify(ctx, enrichers.ClassificationRequest{
		Action:          ActionDetectSpam,
		Text:            text,
		TaskDescription: h.config.SpamPrompt,
		Labels:          []string{LabelSpam, LabelNotSpam},
		Default:         LabelNotSpam,
	})
	if label == LabelSpam {
		h.logger.WithContext(r.Context()).Info("Complaint rejected as spam",
			logging.String("remote_addr", r.RemoteAddr))
		return true
	}
	return false
}

// callerIP returns the peer address when it fits the ip_address column
func callerIP(r *http.Request) string {
	ip := utils.ClientIP(r)
	if len(ip) > storage.MaxIPLength {
		return ""
	}
	return ip
}

// ListComplaints returns complaints matching the query, newest first
// @Summary List complaints
// @Tags complaints
// @Produce json
// @Param category query string false "technical, payment or other"
// @Param status query string false "open or closed"
// @Param sentiment query string false "positive, negative, neutral or unknown"
// @Param start_date query string false "Inclusive lower bound, YYYY-MM-DDTHH:MM:SS"
// @Param end_date query string false "Inclusive upper bound, YYYY-MM-DDTHH:MM:SS"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit, 1..100" default(50)
// @Success 200 {array} storage.Complaint
// @Failure 400 {object} ErrorResponse
// @Router /complaint/ [get]
func (h *Handlers) ListComplaints(w http.ResponseWriter, r *http.Request) {
	query, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	filters := storage.ComplaintFilters{
		Category:  query.Category,
		Status:    query.Status,
		Sentiment: query.Sentiment,
		Offset:    query.Offset,
		Limit:     query.Limit,
	}
	if query.StartDate != "" {
		start, _ := time.Parse(validation.TimestampLayout, query.StartDate)
		filters.StartDate = &start
	}
	if query.EndDate != "" {
		end, _ := time.Parse(validation.TimestampLayout, query.EndDate)
		filters.EndDate = &end
	}

	complaints, err := h.storage.ListComplaints(r.Context(), filters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, complaints)
}

func parseListQuery(w http.ResponseWriter, r *http.Request) (ListComplaintsQuery, bool) {
	values := r.URL.Query()
	query := ListComplaintsQuery{
		Category:  values.Get("category"),
		Status:    values.Get("status"),
		Sentiment: values.Get("sentiment"),
		StartDate: values.Get("start_date"),
		EndDate:   values.Get("end_date"),
		Limit:     defaultListLimit,
	}

	for name, target := range map[string]*int{"offset": &query.Offset, "limit": &query.Limit} {
		raw := values.Get(name)
		if raw == "" {
			continue
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, name+" must be an integer")
			return query, false
		}
		*target = parsed
	}

	if result := validation.ValidateStructResult(query); !result.Valid {
		writeValidation(w, result)
		return query, false
	}
	return query, true
}

// GetComplaint returns one complaint
// @Summary Get a complaint
// @Tags complaints
// @Produce json
// @Param id path int true "Complaint ID"
// @Success 200 {object} storage.Complaint
// @Failure 404 {object} ErrorResponse
// @Router /complaint/{id}/ [get]
func (h *Handlers) GetComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := complaintID(w, r)
	if !ok {
		return
	}

	complaint, err := h.storage.GetComplaint(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, complaint)
}

// UpdateComplaint edits text and/or status. New text is enriched again.
// @Summary Edit a complaint
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path int true "Complaint ID"
// @Param complaint body UpdateComplaintRequest true "Fields to change"
// @Success 200 {object} storage.Complaint
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /complaint/{id}/ [patch]
func (h *Handlers) UpdateComplaint(w http.ResponseWriter, r *http.Request) {
	id, ok := complaintID(w, r)
	if !ok {
		return
	}

	var req UpdateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if result := validation.ValidateStructResult(req); !result.Valid {
		writeValidation(w, result)
		return
	}

	err := h.storage.UpdateComplaint(r.Context(), id, storage.ComplaintUpdate{
		Text:   req.Text,
		Status: req.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	complaint, err := h.storage.GetComplaint(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Text != nil {
		h.enrichment.Schedule(complaint)
	}
	writeJSON(w, http.StatusOK, complaint)
}

func complaintID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		writeDetail(w, http.StatusBadRequest, "complaint id must be a positive integer")
		return 0, false
	}
	return id, true
}
