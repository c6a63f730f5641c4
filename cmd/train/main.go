// Command train fits a random forest from a CSV dataset and writes the JSON
// artifact loaded by the server.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/model"
)

type preset struct {
	dataset  string
	target   string
	features []string
	out      string
}

var presets = map[string]preset{
	"heart": {
		dataset: "Datasets/heart.csv",
		target:  "output",
		out:     "models/heart_disease_model.json",
	},
	"cancer": {
		dataset: "Datasets/breast_cancer.csv",
		target:  "diagnosis",
		features: []string{
			"radius_mean", "texture_mean", "perimeter_mean", "area_mean", "smoothness_mean",
			"compactness_mean", "concavity_mean", "symmetry_mean", "fractal_dimension_mean",
		},
		out: "models/breast_cancer_model.json",
	},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Errorf("train: %v", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	var (
		presetName = fs.String("preset", "", "heart or cancer; fills dataset, target, features and out")
		dataset    = fs.String("dataset", "", "CSV file with a header row")
		target     = fs.String("target", "", "label column")
		features   = fs.String("features", "", "comma-separated feature columns (default: all but target)")
		out        = fs.String("out", "", "artifact path")
		name       = fs.String("name", "", "model name stored in the artifact")
		trees      = fs.Int("trees", 100, "number of trees")
		maxDepth   = fs.Int("max-depth", 0, "maximum tree depth (0 = unlimited)")
		testFrac   = fs.Float64("test-size", 0.2, "held-out fraction for accuracy")
		seed       = fs.Int64("seed", 42, "random seed")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := preset{}
	if *presetName != "" {
		var ok bool
		if p, ok = presets[*presetName]; !ok {
			return fmt.Errorf("unknown preset %q", *presetName)
		}
		if *name == "" {
			*name = *presetName
		}
	}
	if *dataset != "" {
		p.dataset = *dataset
	}
	if *target != "" {
		p.target = *target
	}
	if *features != "" {
		p.features = splitList(*features)
	}
	if *out != "" {
		p.out = *out
	}
	if p.dataset == "" || p.target == "" || p.out == "" {
		return fmt.Errorf("dataset, target and out are required (or use -preset)")
	}
	if *testFrac < 0 || *testFrac >= 1 {
		return fmt.Errorf("test-size must be in [0, 1)")
	}

	f, err := os.Open(p.dataset)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := model.ReadDataset(f, p.target, p.features)
	if err != nil {
		return fmt.Errorf("%s: %w", p.dataset, err)
	}

	train, test := data.Split(*testFrac, *seed)
	forest, err := model.Fit(train, model.TrainConfig{
		Name:     *name,
		Trees:    *trees,
		MaxDepth: *maxDepth,
		Seed:     *seed,
	})
	if err != nil {
		return err
	}
	forest.Meta.Source = filepath.Base(p.dataset)
	if test.Len() > 0 {
		acc, err := model.Accuracy(forest, test)
		if err != nil {
			return err
		}
		forest.Meta.TestAccuracy = acc
		fmt.Fprintf(stdout, "test accuracy: %.4f (%d held out)\n", acc, test.Len())
	}

	if err := os.MkdirAll(filepath.Dir(p.out), 0o755); err != nil {
		return err
	}
	if err := forest.Save(p.out); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved %s: %d trees, %d features, classes %v\n",
		p.out, len(forest.Trees), len(forest.FeatureNames), forest.ClassLabels)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
