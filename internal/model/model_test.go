package model_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthpredict/internal/model"
)

// stumpForest splits on feature 0 at 10 in both trees; the second tree is
// less confident so probabilities are averaged.
func stumpForest() *model.Forest {
	return &model.Forest{
		Format:       model.FormatV1,
		Name:         "stump",
		FeatureNames: []string{"a", "b"},
		ClassLabels:  []string{"B", "M"},
		Trees: []model.Tree{
			{Nodes: []model.Node{
				{Feature: 0, Threshold: 10, Left: 1, Right: 2},
				{Feature: -1, Value: []float64{1, 0}},
				{Feature: -1, Value: []float64{0, 1}},
			}},
			{Nodes: []model.Node{
				{Feature: 0, Threshold: 10, Left: 1, Right: 2},
				{Feature: -1, Value: []float64{0.6, 0.4}},
				{Feature: -1, Value: []float64{0.6, 0.4}},
			}},
		},
	}
}

func TestForestPredictProba(t *testing.T) {
	f := stumpForest()

	proba, err := f.PredictProba([]float64{5, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.8, 0.2}, proba, 1e-12)

	proba, err = f.PredictProba([]float64{11, 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.3, 0.7}, proba, 1e-12)

	label, err := f.Predict([]float64{11, 0})
	require.NoError(t, err)
	assert.Equal(t, "M", label)

	// x == threshold goes left.
	label, err = f.Predict([]float64{10, 0})
	require.NoError(t, err)
	assert.Equal(t, "B", label)
}

func TestForestRejectsWrongWidth(t *testing.T) {
	_, err := stumpForest().PredictProba([]float64{1})
	assert.ErrorContains(t, err, "want 2")
}

func TestForestTieGoesToFirstClass(t *testing.T) {
	f := stumpForest()
	f.Trees = f.Trees[1:]
	f.Trees[0].Nodes[2].Value = []float64{0.5, 0.5}

	label, err := f.Predict([]float64{50, 0})
	require.NoError(t, err)
	assert.Equal(t, "B", label)
}

func TestContractAccessorsCopy(t *testing.T) {
	f := stumpForest()
	names := f.ExpectedFeatureNames()
	names[0] = "changed"
	assert.Equal(t, "a", f.FeatureNames[0])
	assert.Equal(t, []string{"B", "M"}, f.Classes())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stump.json")
	require.NoError(t, stumpForest().Save(path))

	loaded, err := model.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, loaded.ExpectedFeatureNames())

	proba, err := loaded.PredictProba([]float64{11, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, proba[1], 1e-12)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := model.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrModelLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var le *model.LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Path, "nope.json")
}

func TestDecodeRejectsCorruptArtifacts(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"format":`,
		"wrong format":   `{"format":"pickle","feature_names":["a"],"classes":["0","1"],"trees":[]}`,
		"no trees":       `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0","1"],"trees":[]}`,
		"one class":      `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0"],"trees":[{"nodes":[{"feature":-1,"value":[1]}]}]}`,
		"dup features":   `{"format":"healthpredict.forest/v1","feature_names":["a","a"],"classes":["0","1"],"trees":[{"nodes":[{"feature":-1,"value":[1,0]}]}]}`,
		"leaf width":     `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0","1"],"trees":[{"nodes":[{"feature":-1,"value":[1]}]}]}`,
		"feature range":  `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0","1"],"trees":[{"nodes":[{"feature":3,"threshold":1,"left":1,"right":2},{"feature":-1,"value":[1,0]},{"feature":-1,"value":[0,1]}]}]}`,
		"child cycle":    `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0","1"],"trees":[{"nodes":[{"feature":0,"threshold":1,"left":0,"right":1},{"feature":-1,"value":[0,1]}]}]}`,
		"negative value": `{"format":"healthpredict.forest/v1","feature_names":["a"],"classes":["0","1"],"trees":[{"nodes":[{"feature":-1,"value":[-1,2]}]}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := model.Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadWrapsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := model.Load(path)
	assert.ErrorIs(t, err, model.ErrModelLoad)
}

func separableCSV() string {
	var b strings.Builder
	b.WriteString("x1,x2,noise,diagnosis\n")
	for i := 0; i < 60; i++ {
		label := "B"
		x1 := float64(i % 30)
		if i%2 == 0 {
			label = "M"
			x1 += 100
		}
		fmt.Fprintf(&b, "%g,%d,%d,%s\n", x1, i%7, (i*13)%5, label)
	}
	return b.String()
}

func TestReadDataset(t *testing.T) {
	ds, err := model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2", "noise"}, ds.FeatureNames)
	assert.Equal(t, 60, ds.Len())

	ds, err = model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", []string{"noise", "x1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"noise", "x1"}, ds.FeatureNames)

	_, err = model.ReadDataset(strings.NewReader(separableCSV()), "output", nil)
	assert.ErrorContains(t, err, "target column")

	_, err = model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", []string{"missing"})
	assert.ErrorContains(t, err, "missing")

	_, err = model.ReadDataset(strings.NewReader("a,y\nfoo,1\n"), "y", nil)
	assert.ErrorContains(t, err, "row 1")

	_, err = model.ReadDataset(strings.NewReader("a,b,output\n1,2,0\n3\n"), "output", nil)
	assert.ErrorContains(t, err, "row 2 has 1 columns, want at least 3")

	ds, err = model.ReadDataset(strings.NewReader("a,output,b\n1,0,9\n2,1\n"), "output", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestSplit(t *testing.T) {
	ds, err := model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", nil)
	require.NoError(t, err)

	train, test := ds.Split(0.2, 42)
	assert.Equal(t, 48, train.Len())
	assert.Equal(t, 12, test.Len())

	again, _ := ds.Split(0.2, 42)
	assert.Equal(t, train.X, again.X)
}

func TestFitLearnsSeparableData(t *testing.T) {
	ds, err := model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", nil)
	require.NoError(t, err)
	train, test := ds.Split(0.2, 42)

	f, err := model.Fit(train, model.TrainConfig{Name: "toy", Trees: 15, Seed: 7, MaxFeatures: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "M"}, f.Classes())
	assert.Len(t, f.Trees, 15)

	acc, err := model.Accuracy(f, test)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	// The trained artifact must pass the same validation as a loaded one.
	path := filepath.Join(t.TempDir(), "toy.json")
	require.NoError(t, f.Save(path))
	_, err = model.Load(path)
	require.NoError(t, err)
}

func TestFitDeterministicForSeed(t *testing.T) {
	ds, err := model.ReadDataset(strings.NewReader(separableCSV()), "diagnosis", nil)
	require.NoError(t, err)

	a, err := model.Fit(ds, model.TrainConfig{Trees: 5, Seed: 1})
	require.NoError(t, err)
	b, err := model.Fit(ds, model.TrainConfig{Trees: 5, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, a.Trees, b.Trees)
}

func TestFitRejectsSingleClass(t *testing.T) {
	ds, err := model.ReadDataset(strings.NewReader("a,y\n1,0\n2,0\n"), "y", nil)
	require.NoError(t, err)
	_, err = model.Fit(ds, model.TrainConfig{})
	assert.ErrorContains(t, err, "two classes")
}
