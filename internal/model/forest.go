// Package model holds the persisted random-forest classifier used by the
// predictors, together with its loader and trainer.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const FormatV1 = "healthpredict.forest/v1"

// Classifier is the contract predictors rely on. Implementations must be
// safe for concurrent read-only use.
type Classifier interface {
	ExpectedFeatureNames() []string
	Classes() []string
	Predict(x []float64) (string, error)
	PredictProba(x []float64) ([]float64, error)
}

// Forest is an ensemble of binary decision trees. A sample goes left when
// x[Feature] <= Threshold.
type Forest struct {
	Format       string   `json:"format"`
	Name         string   `json:"name"`
	FeatureNames []string `json:"feature_names"`
	ClassLabels  []string `json:"classes"`
	Trees        []Tree   `json:"trees"`
	Meta         Meta     `json:"meta"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Feature >= 0 and a leaf otherwise. Leaves carry the
// class distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

type Meta struct {
	TrainedAt    time.Time `json:"trained_at"`
	Source       string    `json:"source,omitempty"`
	Target       string    `json:"target,omitempty"`
	Samples      int       `json:"samples"`
	TestAccuracy float64   `json:"test_accuracy"`
	Seed         int64     `json:"seed"`
}

func (f *Forest) ExpectedFeatureNames() []string {
	out := make([]string, len(f.FeatureNames))
	copy(out, f.FeatureNames)
	return out
}

func (f *Forest) Classes() []string {
	out := make([]string, len(f.ClassLabels))
	copy(out, f.ClassLabels)
	return out
}

// PredictProba averages the normalized leaf distributions of every tree.
// The result is aligned with Classes().
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(f.FeatureNames) {
		return nil, fmt.Errorf("forest %s: got %d features, want %d", f.Name, len(x), len(f.FeatureNames))
	}
	out := make([]float64, len(f.ClassLabels))
	for ti := range f.Trees {
		leaf := f.Trees[ti].leaf(x)
		var total float64
		for _, v := range leaf.Value {
			total += v
		}
		if total <= 0 {
			continue
		}
		for c, v := range leaf.Value {
			out[c] += v / total
		}
	}
	n := float64(len(f.Trees))
	for c := range out {
		out[c] /= n
	}
	return out, nil
}

// Predict returns the most probable class; the first class wins ties.
func (f *Forest) Predict(x []float64) (string, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.ClassLabels[best], nil
}

// leaf walks from the root. Validation guarantees children sit after their
// parent, so the walk always terminates.
func (t *Tree) leaf(x []float64) Node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Save writes the artifact as indented JSON.
func (f *Forest) Save(path string) error {
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode forest: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write forest: %w", err)
	}
	return nil
}
