package reconcile

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Record maps canonical feature names to scalar values. Extra keys are ignored.
type Record map[string]any

// Vector is a feature vector in model order.
type Vector struct {
	Names  []string  `json:"names"`
	Values []float64 `json:"values"`
}

// binaryTokens are accepted for every field after the field's own encoding.
var binaryTokens = map[string]float64{
	"yes":   1,
	"no":    0,
	"true":  1,
	"false": 0,
}

// Normalize renames, selects and reorders record to match spec exactly.
func Normalize(record Record, rename RenameMap, spec *FeatureSpec) (Vector, error) {
	renamed := make(map[string]any, len(record))
	sources := make(map[string]string, len(record))
	for _, key := range slices.Sorted(maps.Keys(record)) {
		v := record[key]
		target := rename.Apply(strings.TrimSpace(key))
		if prev, dup := sources[target]; dup && spec.Has(target) {
			f := spec.fields[spec.index[target]]
			return Vector{}, mismatch(f, 0, "provided twice (as %q and %q)", prev, key)
		}
		sources[target] = key
		renamed[target] = v
	}

	out := Vector{
		Names:  spec.Names(),
		Values: make([]float64, len(spec.fields)),
	}
	for i, f := range spec.fields {
		raw, ok := renamed[f.Expected]
		if !ok {
			return Vector{}, mismatch(f, 0, "required feature is missing")
		}
		v, err := coerce(f, raw, 0)
		if err != nil {
			return Vector{}, err
		}
		out.Values[i] = v
	}
	return out, nil
}

func coerce(f Field, raw any, row int) (float64, error) {
	var v float64
	switch val := raw.(type) {
	case nil:
		return 0, mismatch(f, row, "value is empty")
	case float64:
		v = val
	case float32:
		v = float64(val)
	case int:
		v = float64(val)
	case int32:
		v = float64(val)
	case int64:
		v = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, mismatch(f, row, "value %q is not numeric", val.String())
		}
		v = parsed
	case bool:
		if val {
			v = 1
		}
	case string:
		parsed, err := coerceString(f, val, row)
		if err != nil {
			return 0, err
		}
		v = parsed
	default:
		return 0, mismatch(f, row, "unsupported value type %T", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, mismatch(f, row, "value is not finite")
	}
	if f.Range != nil && !f.Range.Contains(v) {
		return 0, mismatch(f, row, "value %g outside [%g, %g]", v, f.Range.Min, f.Range.Max)
	}
	return v, nil
}

func coerceString(f Field, s string, row int) (float64, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if token == "" {
		return 0, mismatch(f, row, "value is empty")
	}
	if v, ok := f.Encoding[token]; ok {
		return v, nil
	}
	if v, ok := binaryTokens[token]; ok {
		return v, nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, mismatch(f, row, "value %q is not numeric", s)
	}
	return v, nil
}
