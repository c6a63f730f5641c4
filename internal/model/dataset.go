package model

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/Skufu/healthpredict/internal/reconcile"
)

// Dataset is a numeric feature matrix with string class labels.
type Dataset struct {
	FeatureNames []string
	Target       string
	X            [][]float64
	Y            []string
}

// ReadDataset loads a training table. When features is empty every column
// except target is used, in header order.
func ReadDataset(r io.Reader, target string, features []string) (*Dataset, error) {
	tbl, err := reconcile.ReadTable(r)
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(tbl.Header))
	for i, name := range tbl.Header {
		cols[name] = i
	}
	targetCol, ok := cols[target]
	if !ok {
		return nil, fmt.Errorf("dataset: target column %q not found", target)
	}
	if len(features) == 0 {
		for _, name := range tbl.Header {
			if name != target {
				features = append(features, name)
			}
		}
	}
	positions := make([]int, len(features))
	for i, name := range features {
		col, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("dataset: feature column %q not found", name)
		}
		if col == targetCol {
			return nil, fmt.Errorf("dataset: target %q listed as a feature", target)
		}
		positions[i] = col
	}
	need := targetCol + 1
	for _, col := range positions {
		if col+1 > need {
			need = col + 1
		}
	}

	ds := &Dataset{
		FeatureNames: append([]string(nil), features...),
		Target:       target,
		X:            make([][]float64, 0, len(tbl.Rows)),
		Y:            make([]string, 0, len(tbl.Rows)),
	}
	for r, row := range tbl.Rows {
		if len(row) < need {
			return nil, fmt.Errorf("dataset: row %d has %d columns, want at least %d", r+1, len(row), need)
		}
		x := make([]float64, len(positions))
		for i, col := range positions {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %s: %w", r+1, features[i], err)
			}
			x[i] = v
		}
		label := strings.TrimSpace(row[targetCol])
		if label == "" {
			return nil, fmt.Errorf("dataset: row %d has an empty %s", r+1, target)
		}
		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, label)
	}
	if len(ds.X) == 0 {
		return nil, fmt.Errorf("dataset: no rows")
	}
	return ds, nil
}

func (d *Dataset) Len() int { return len(d.X) }

func (d *Dataset) subset(idx []int) *Dataset {
	out := &Dataset{
		FeatureNames: d.FeatureNames,
		Target:       d.Target,
		X:            make([][]float64, len(idx)),
		Y:            make([]string, len(idx)),
	}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

// Split shuffles with seed and holds out testFrac of the rows.
func (d *Dataset) Split(testFrac float64, seed int64) (train, test *Dataset) {
	perm := rand.New(rand.NewSource(seed)).Perm(d.Len())
	nTest := int(float64(d.Len())*testFrac + 0.5)
	if nTest >= d.Len() {
		nTest = d.Len() - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	return d.subset(perm[nTest:]), d.subset(perm[:nTest])
}

// Accuracy is the share of rows whose prediction equals the label.
func Accuracy(c Classifier, d *Dataset) (float64, error) {
	if d.Len() == 0 {
		return 0, nil
	}
	hits := 0
	for i, x := range d.X {
		label, err := c.Predict(x)
		if err != nil {
			return 0, err
		}
		if label == d.Y[i] {
			hits++
		}
	}
	return float64(hits) / float64(d.Len()), nil
}
