// Package risk turns a probabilistic classifier's output into a labelled,
// tiered result.
package risk

import (
	"errors"
	"fmt"
)

var ErrUnknownPositiveClass = errors.New("positive label is not a model class")

// Model is the read-only inference surface Classify needs.
type Model interface {
	Classes() []string
	Predict(x []float64) (string, error)
	PredictProba(x []float64) ([]float64, error)
}

type Result struct {
	Label       string   `json:"predictedLabel"`
	Probability float64  `json:"positiveClassProbability"`
	Severity    Severity `json:"severity"`
}

// Percent is the positive-class probability on a 0-100 scale.
func (r Result) Percent() float64 {
	return r.Probability * 100
}

// PositiveIndex locates the configured positive label in classes.
func PositiveIndex(classes []string, positive string) (int, error) {
	for i, c := range classes {
		if c == positive {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q not in %v", ErrUnknownPositiveClass, positive, classes)
}

// CheckPositiveLabel is the start-up form of the positive class lookup.
func CheckPositiveLabel(m Model, positive string) error {
	_, err := PositiveIndex(m.Classes(), positive)
	return err
}

// Classify predicts x and reports the probability of the positive class.
func Classify(m Model, x []float64, positive string) (Result, error) {
	idx, err := PositiveIndex(m.Classes(), positive)
	if err != nil {
		return Result{}, err
	}
	label, err := m.Predict(x)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	proba, err := m.PredictProba(x)
	if err != nil {
		return Result{}, fmt.Errorf("predict proba: %w", err)
	}
	if idx >= len(proba) {
		return Result{}, fmt.Errorf("predict proba: %d probabilities for %d classes", len(proba), len(m.Classes()))
	}
	p := proba[idx]
	return Result{
		Label:       label,
		Probability: p,
		Severity:    SeverityFor(p),
	}, nil
}
