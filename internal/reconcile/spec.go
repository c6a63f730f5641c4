// Package reconcile maps human-facing feature records onto the frozen column
// order a trained model was fit on.
package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// RenameMap translates human-facing names to the model's internal names.
// Names absent from the map pass through unchanged.
type RenameMap map[string]string

func (m RenameMap) Apply(name string) string {
	if to, ok := m[name]; ok && to != "" {
		return to
	}
	return name
}

// Reverse returns the model name -> human-facing name table.
func (m RenameMap) Reverse() map[string]string {
	out := make(map[string]string, len(m))
	for from, to := range m {
		out[to] = from
	}
	return out
}

// Range is an inclusive bound on accepted values.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// MarshalJSON leaves out open (infinite) bounds.
func (r Range) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, 2)
	if !math.IsInf(r.Min, 0) {
		out["min"] = r.Min
	}
	if !math.IsInf(r.Max, 0) {
		out["max"] = r.Max
	}
	return json.Marshal(out)
}

// Hint carries optional per-field metadata keyed by canonical name.
type Hint struct {
	Display  string
	Range    *Range
	Encoding map[string]float64
}

// Field is one column of a FeatureSpec.
type Field struct {
	Canonical string             `json:"canonical"`
	Expected  string             `json:"expected"`
	Display   string             `json:"display,omitempty"`
	Range     *Range             `json:"range,omitempty"`
	Encoding  map[string]float64 `json:"encoding,omitempty"`
}

// FeatureSpec is the ordered schema a model expects. It is immutable once
// built and safe to share between goroutines.
type FeatureSpec struct {
	fields []Field
	index  map[string]int
}

type SpecOption func(*specBuilder)

type specBuilder struct {
	renames RenameMap
	hints   map[string]Hint
}

// WithRenames derives canonical names from the rename table.
func WithRenames(m RenameMap) SpecOption {
	return func(b *specBuilder) { b.renames = m }
}

// WithHints attaches display names, ranges and encodings by canonical name.
func WithHints(h map[string]Hint) SpecOption {
	return func(b *specBuilder) { b.hints = h }
}

// BuildSpec captures the exact list and order of names a model requires.
// expected must come from the model artifact itself.
func BuildSpec(expected []string, opts ...SpecOption) (*FeatureSpec, error) {
	if len(expected) == 0 {
		return nil, fmt.Errorf("feature spec: model declares no features")
	}
	var b specBuilder
	for _, opt := range opts {
		opt(&b)
	}
	reverse := b.renames.Reverse()

	spec := &FeatureSpec{
		fields: make([]Field, 0, len(expected)),
		index:  make(map[string]int, len(expected)),
	}
	for i, name := range expected {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("feature spec: empty feature name at position %d", i)
		}
		if _, dup := spec.index[name]; dup {
			return nil, fmt.Errorf("feature spec: duplicate feature %q", name)
		}
		canonical := name
		if from, ok := reverse[name]; ok {
			canonical = from
		}
		f := Field{Canonical: canonical, Expected: name}
		if h, ok := b.hints[canonical]; ok {
			f.Display = h.Display
			f.Range = h.Range
			f.Encoding = normalizeEncoding(h.Encoding)
		}
		spec.index[name] = len(spec.fields)
		spec.fields = append(spec.fields, f)
	}
	return spec, nil
}

func normalizeEncoding(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for token, v := range in {
		out[strings.ToLower(strings.TrimSpace(token))] = v
	}
	return out
}

// Len reports the number of features.
func (s *FeatureSpec) Len() int { return len(s.fields) }

// Fields returns a copy of the ordered fields.
func (s *FeatureSpec) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the model-facing names in order.
func (s *FeatureSpec) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Expected
	}
	return out
}

// Has reports whether name is one of the model-facing names.
func (s *FeatureSpec) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// DisplayName prefers the configured label over the canonical name.
func (f Field) DisplayName() string {
	if f.Display != "" {
		return f.Display
	}
	return f.Canonical
}
