// Package service runs predictions and their side effects: metrics,
// history and events.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skufu/healthpredict/internal/events"
	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/metrics"
	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/store"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNoStore      = errors.New("prediction history is disabled")
)

type Service struct {
	registry  *predictor.Registry
	store     store.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time

	publishTimeout time.Duration
}

const defaultPublishTimeout = 2 * time.Second

type Option func(*Service)

// WithStore enables prediction history.
func WithStore(s store.Store) Option {
	return func(svc *Service) { svc.store = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(svc *Service) { svc.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithPublishTimeout bounds how long a request waits on the event broker.
func WithPublishTimeout(d time.Duration) Option {
	return func(svc *Service) { svc.publishTimeout = d }
}

func New(reg *predictor.Registry, opts ...Option) *Service {
	svc := &Service{
		registry:  reg,
		publisher: events.Nop{},
		now:       time.Now,

		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.metrics == nil {
		svc.metrics = metrics.New()
	}
	return svc
}

func (s *Service) Models() []predictor.Info {
	all := s.registry.All()
	out := make([]predictor.Info, 0, len(all))
	for _, p := range all {
		out = append(out, p.Info())
	}
	return out
}

// Predictor looks up a configured model.
func (s *Service) Predictor(key string) (*predictor.Predictor, error) {
	p, ok := s.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}
	return p, nil
}

// Predict classifies rec and records it. History and event failures are
// logged and counted but never returned.
func (s *Service) Predict(ctx context.Context, key string, rec reconcile.Record) (predictor.Outcome, error) {
	out, err := s.Evaluate(key, rec)
	if err != nil {
		return predictor.Outcome{}, err
	}
	s.Record(ctx, out)
	return out, nil
}

// Evaluate classifies rec without adding it to history.
func (s *Service) Evaluate(key string, rec reconcile.Record) (predictor.Outcome, error) {
	p, err := s.Predictor(key)
	if err != nil {
		return predictor.Outcome{}, err
	}
	out, err := p.Predict(rec)
	if err != nil {
		s.metrics.ObserveError(key, errorKind(err))
		return predictor.Outcome{}, err
	}
	return out, nil
}

// Record counts out and stores it in history.
func (s *Service) Record(ctx context.Context, out predictor.Outcome) {
	s.metrics.ObservePrediction(out.Model, out.Severity.Tier())

	entry, err := store.FromOutcome(out, s.now())
	if err != nil {
		logger.Warnf("model %s: encode history entry: %v", out.Model, err)
		return
	}
	s.record(ctx, entry)
}

// ObserveBadRequest counts a request rejected before classification.
// Keys outside the registry share one label.
func (s *Service) ObserveBadRequest(key string) {
	if _, err := s.Predictor(key); err != nil {
		key = "none"
	}
	s.metrics.ObserveError(key, metrics.KindBadRequest)
}

// PredictBatch classifies every row of t or none of them.
func (s *Service) PredictBatch(ctx context.Context, key string, t reconcile.Table) (*predictor.Batch, error) {
	p, err := s.Predictor(key)
	if err != nil {
		return nil, err
	}
	b, err := p.PredictBatch(t)
	if err != nil {
		s.metrics.ObserveError(key, errorKind(err))
		return nil, err
	}
	s.metrics.ObserveBatch(len(b.Rows))
	for _, row := range b.Rows {
		s.metrics.ObservePrediction(key, row.Severity.Tier())
	}

	entry, err := store.FromBatch(b, s.now())
	if err != nil {
		logger.Warnf("model %s: encode batch history entry: %v", key, err)
		return b, nil
	}
	s.record(ctx, entry)
	return b, nil
}

// History lists stored predictions, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.Prediction, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.List(ctx, limit)
}

// ObserveRenderError counts a failed report rendering.
func (s *Service) ObserveRenderError(key string) {
	s.metrics.ObserveError(key, metrics.KindRender)
}

func (s *Service) record(ctx context.Context, entry store.Prediction) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, entry); err != nil {
		s.metrics.ObserveError(entry.Model, metrics.KindStore)
		logger.Errorf("model %s: save prediction %s: %v", entry.Model, entry.ID, err)
		return
	}
	pctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, entry); err != nil {
		s.metrics.ObserveError(entry.Model, metrics.KindPublish)
		logger.Warnf("model %s: publish prediction %s: %v", entry.Model, entry.ID, err)
	}
}

func errorKind(err error) string {
	if errors.Is(err, reconcile.ErrSchemaMismatch) {
		return metrics.KindSchemaMismatch
	}
	return metrics.KindInternal
}
