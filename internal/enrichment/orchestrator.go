// Package enrichment fills in the derived columns of a stored complaint:
// sentiment and category from the classification provider, country and
// city from the geolocation provider.
//
// The two flows run side by side and share nothing but the complaint ID,
// so a failure or panic in one never prevents the other from persisting
// its result.
package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
	"complaint-service/internal/enrichers"
	"complaint-service/internal/storage"
)

const (
	actionClassification = "enrich_classification"
	actionGeo            = "enrich_geo"

	ActionSentiment = "classify_sentiment"
	ActionCategory  = "classify_category"
)

// Outcomes reported by the orchestrator's log events
const (
	OutcomePersisted     = "persisted"
	OutcomeCopied        = "copied_from_cache"
	OutcomeSkipped       = "skipped"
	OutcomePersistFailed = "persist_failed"
	OutcomePanicked      = "panicked"
)

// sentimentLabels and categoryLabels build a fresh label set per request
func sentimentLabels() []string {
	return []string{storage.SentimentPositive, storage.SentimentNegative, storage.SentimentNeutral}
}

func categoryLabels() []string {
	return []string{storage.CategoryTechnical, storage.CategoryPayment, storage.CategoryOther}
}

// Store is the slice of storage the orchestrator needs
type Store interface {
	GetComplaint(ctx context.Context, id int64) (*storage.Complaint, error)
	FindResolvedGeoByIP(ctx context.Context, ip string, excludeID int64) (*storage.Complaint, error)
	UpdateComplaint(ctx context.Context, id int64, update storage.ComplaintUpdate) error
}

type Classifier interface {
	Classify(ctx context.Context, req enrichers.ClassificationRequest) string
}

type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (enrichers.GeoResult, error)
}

// Prompts are the task descriptions sent with each classification
type Prompts struct {
	Sentiment string
	Category  string
}

type Orchestrator struct {
	store      Store
	classifier Classifier
	geo        GeoResolver
	prompts    Prompts
	logger     logging.Logger

	inflight sync.WaitGroup
}

func NewOrchestrator(store Store, classifier Classifier, geo GeoResolver, prompts Prompts, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		geo:        geo,
		prompts:    prompts,
		logger:     logger,
	}
}

// Schedule enriches complaint in the background and returns immediately.
// The unit runs on its own context so it outlives the request that
// scheduled it.
func (o *Orchestrator) Schedule(complaint *storage.Complaint) {
	snapshot := *complaint

	o.inflight.Add(1)
	go func() {
		defer o.inflight.Done()
		o.Enrich(context.Background(), &snapshot)
	}()
}

// Wait blocks until every scheduled unit has finished or timeout elapses,
// and reports whether they all finished.
func (o *Orchestrator) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// EnrichByID loads a stored complaint and enriches it synchronously.
func (o *Orchestrator) EnrichByID(ctx context.Context, id int64) error {
	complaint, err := o.store.GetComplaint(ctx, id)
	if err != nil {
		return err
	}
	o.Enrich(ctx, complaint)
	return nil
}

// Enrich runs the classification and geo flows concurrently and returns
// when both are done. It never fails; every problem is logged.
func (o *Orchestrator) Enrich(ctx context.Context, complaint *storage.Complaint) {
	requestID := utils.GenerateRequestID()

	var g errgroup.Group
	g.Go(func() error {
		ev := logging.NewEvent(o.logger, requestID, actionClassification)
		o.guard(ev, func() { o.classify(ctx, ev, complaint) })
		return nil
	})
	g.Go(func() error {
		ev := logging.NewEvent(o.logger, requestID, actionGeo)
		o.guard(ev, func() { o.locate(ctx, ev, complaint) })
		return nil
	})
	g.Wait()
}

// guard turns a panic inside fn into a logged error
func (o *Orchestrator) guard(ev *logging.Event, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			ev.Error(OutcomePanicked, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

func (o *Orchestrator) classify(ctx context.Context, ev *logging.Event, complaint *storage.Complaint) {
	var sentiment, category string

	var g errgroup.Group
	g.Go(func() error {
		sentiment = o.classifyOne(ctx, ev, enrichers.ClassificationRequest{
			Action:          ActionSentiment,
			Text:            complaint.Text,
			TaskDescription: o.prompts.Sentiment,
			Labels:          sentimentLabels(),
			Default:         storage.SentimentUnknown,
		})
		return nil
	})
	g.Go(func() error {
		category = o.classifyOne(ctx, ev, enrichers.ClassificationRequest{
			Action:          ActionCategory,
			Text:            complaint.Text,
			TaskDescription: o.prompts.Category,
			Labels:          categoryLabels(),
			Default:         storage.CategoryOther,
		})
		return nil
	})
	g.Wait()

	err := o.store.UpdateComplaint(ctx, complaint.ID, storage.ComplaintUpdate{
		Sentiment: &sentiment,
		Category:  &category,
	})
	if err != nil {
		ev.Error(OutcomePersistFailed, err)
		return
	}
	ev.Info(OutcomePersisted)
}

// classifyOne returns req.Default when the classifier panics
func (o *Orchestrator) classifyOne(ctx context.Context, ev *logging.Event, req enrichers.ClassificationRequest) (label string) {
	defer func() {
		if r := recover(); r != nil {
			ev.Error(OutcomePanicked, fmt.Errorf("%s panic: %v", req.Action, r))
			label = req.Default
		}
	}()
	return o.classifier.Classify(ctx, req)
}

func (o *Orchestrator) locate(ctx context.Context, ev *logging.Event, complaint *storage.Complaint) {
	ip := utils.StringFromPtr(complaint.IPAddress)
	if ip == "" {
		ev.Info(OutcomeSkipped)
		return
	}

	cached, err := o.store.FindResolvedGeoByIP(ctx, ip, complaint.ID)
	if err != nil {
		ev.Warn("cache_lookup_failed", err)
	}
	if cached != nil {
		o.persistGeo(ctx, ev, complaint.ID, *cached.GeoCountry, *cached.GeoCity, OutcomeCopied)
		return
	}

	result, err := o.geo.Resolve(ctx, ip)
	if err != nil {
		ev.Warn(OutcomeSkipped, err)
		return
	}
	o.persistGeo(ctx, ev, complaint.ID, result.Country, result.City, OutcomePersisted)
}

func (o *Orchestrator) persistGeo(ctx context.Context, ev *logging.Event, id int64, country, city, outcome string) {
	err := o.store.UpdateComplaint(ctx, id, storage.ComplaintUpdate{
		GeoCountry: &country,
		GeoCity:    &city,
	})
	if err != nil {
		ev.Error(OutcomePersistFailed, err)
		return
	}
	ev.Info(outcome)
}
