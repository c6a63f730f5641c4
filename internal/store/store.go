// Package store records prediction history.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/risk"
)

const (
	KindSingle = "single"
	KindBatch  = "batch"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Prediction is one history entry. Batch runs are stored as a single
// summary entry whose Inputs hold the tier counts.
type Prediction struct {
	ID          uuid.UUID       `json:"id"`
	Model       string          `json:"model"`
	Kind        string          `json:"kind"`
	Label       string          `json:"predictedLabel,omitempty"`
	Probability float64         `json:"positiveClassProbability"`
	Severity    risk.Severity   `json:"severity"`
	Rows        int             `json:"rows"`
	Inputs      json.RawMessage `json:"inputs,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Store interface {
	Save(ctx context.Context, p Prediction) error
	// List returns the newest entries first.
	List(ctx context.Context, limit int) ([]Prediction, error)
	Ping(ctx context.Context) error
	Close() error
}

// FromOutcome builds the history entry for a single prediction. Inputs are
// keyed by the model's feature names.
func FromOutcome(out predictor.Outcome, now time.Time) (Prediction, error) {
	inputs := make(map[string]float64, len(out.Features.Names))
	for i, name := range out.Features.Names {
		inputs[name] = out.Features.Values[i]
	}
	raw, err := json.Marshal(inputs)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{
		ID:          uuid.New(),
		Model:       out.Model,
		Kind:        KindSingle,
		Label:       out.Label,
		Probability: out.Probability,
		Severity:    out.Severity,
		Rows:        1,
		Inputs:      raw,
		CreatedAt:   now.UTC(),
	}, nil
}

// FromBatch summarises a batch run: mean probability, the most severe tier
// seen and the per-tier counts.
func FromBatch(b *predictor.Batch, now time.Time) (Prediction, error) {
	raw, err := json.Marshal(b.Summary)
	if err != nil {
		return Prediction{}, err
	}
	p := Prediction{
		ID:        uuid.New(),
		Model:     b.Model,
		Kind:      KindBatch,
		Severity:  risk.Low,
		Rows:      len(b.Rows),
		Inputs:    raw,
		CreatedAt: now.UTC(),
	}
	if len(b.Rows) == 0 {
		return p, nil
	}
	var sum float64
	for _, r := range b.Rows {
		sum += r.Probability
		if r.Severity > p.Severity {
			p.Severity = r.Severity
		}
	}
	p.Probability = sum / float64(len(b.Rows))
	return p, nil
}

// Limit clamps a requested list size to (0, ceiling].
func Limit(n, ceiling int) int {
	if n <= 0 {
		return DefaultListLimit
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
