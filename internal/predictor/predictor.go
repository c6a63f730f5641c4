// Package predictor wires one feature reconciler and one risk classifier per
// configured model.
package predictor

import (
	"fmt"
	"math"

	"github.com/Skufu/healthpredict/internal/config"
	"github.com/Skufu/healthpredict/internal/model"
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/risk"
)

type Predictor struct {
	profile config.ModelProfile
	model   model.Classifier
	renames reconcile.RenameMap
	spec    *reconcile.FeatureSpec
}

// Outcome is one classified record.
type Outcome struct {
	Model       string           `json:"model"`
	Title       string           `json:"title"`
	Label       string           `json:"predictedLabel"`
	LabelText   string           `json:"result"`
	Probability float64          `json:"positiveClassProbability"`
	Percent     float64          `json:"probabilityPercent"`
	Severity    risk.Severity    `json:"severity"`
	Features    reconcile.Vector `json:"features"`
}

// Info describes a model for clients building input forms.
type Info struct {
	Key           string            `json:"key"`
	Title         string            `json:"title"`
	PositiveLabel string            `json:"positiveLabel"`
	Classes       []string          `json:"classes"`
	Fields        []reconcile.Field `json:"fields"`
}

// New builds the feature spec from the model's own schema and checks the
// profile against it. Every error here is a deployment problem.
func New(profile config.ModelProfile, m model.Classifier) (*Predictor, error) {
	renames := reconcile.RenameMap(profile.Rename)
	spec, err := reconcile.BuildSpec(m.ExpectedFeatureNames(),
		reconcile.WithRenames(renames),
		reconcile.WithHints(hints(profile.Fields)),
	)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", profile.Key, err)
	}
	if err := risk.CheckPositiveLabel(m, profile.PositiveLabel); err != nil {
		return nil, fmt.Errorf("model %s: %w", profile.Key, err)
	}
	for from, to := range renames {
		if !spec.Has(to) {
			return nil, fmt.Errorf("model %s: rename %s -> %s targets an unknown feature", profile.Key, from, to)
		}
	}
	canonical := make(map[string]bool, spec.Len())
	for _, f := range spec.Fields() {
		canonical[f.Canonical] = true
	}
	for _, f := range profile.Fields {
		if !canonical[f.Name] {
			return nil, fmt.Errorf("model %s: field %q is not an input of the model", profile.Key, f.Name)
		}
	}
	return &Predictor{profile: profile, model: m, renames: renames, spec: spec}, nil
}

func hints(fields []config.FieldProfile) map[string]reconcile.Hint {
	out := make(map[string]reconcile.Hint, len(fields))
	for _, f := range fields {
		h := reconcile.Hint{Display: f.Display, Encoding: f.Encoding}
		if f.Min != nil || f.Max != nil {
			r := reconcile.Range{Min: math.Inf(-1), Max: math.Inf(1)}
			if f.Min != nil {
				r.Min = *f.Min
			}
			if f.Max != nil {
				r.Max = *f.Max
			}
			h.Range = &r
		}
		out[f.Name] = h
	}
	return out
}

func (p *Predictor) Key() string   { return p.profile.Key }
func (p *Predictor) Title() string { return p.profile.Title }

// Spec is the immutable feature schema of the model.
func (p *Predictor) Spec() *reconcile.FeatureSpec { return p.spec }

func (p *Predictor) Info() Info {
	return Info{
		Key:           p.profile.Key,
		Title:         p.profile.Title,
		PositiveLabel: p.profile.PositiveLabel,
		Classes:       p.model.Classes(),
		Fields:        p.spec.Fields(),
	}
}

// Predict reconciles rec and classifies it.
func (p *Predictor) Predict(rec reconcile.Record) (Outcome, error) {
	vec, err := reconcile.Normalize(rec, p.renames, p.spec)
	if err != nil {
		return Outcome{}, err
	}
	return p.classify(vec)
}

func (p *Predictor) classify(vec reconcile.Vector) (Outcome, error) {
	res, err := risk.Classify(p.model, vec.Values, p.profile.PositiveLabel)
	if err != nil {
		return Outcome{}, fmt.Errorf("model %s: %w", p.profile.Key, err)
	}
	return Outcome{
		Model:       p.profile.Key,
		Title:       p.profile.Title,
		Label:       res.Label,
		LabelText:   p.profile.LabelText(res.Label),
		Probability: res.Probability,
		Percent:     res.Percent(),
		Severity:    res.Severity,
		Features:    vec,
	}, nil
}
