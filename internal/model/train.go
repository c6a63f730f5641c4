package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// TrainConfig mirrors the usual random-forest knobs. Zero values pick the
// defaults: 100 trees, unlimited depth, min split of 2, sqrt(features).
type TrainConfig struct {
	Name            string
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Seed            int64
}

func (c TrainConfig) withDefaults(nFeatures int) TrainConfig {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MaxFeatures <= 0 || c.MaxFeatures > nFeatures {
		c.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}
	return c
}

// Fit grows a bootstrap-aggregated forest of Gini CART trees.
func Fit(d *Dataset, cfg TrainConfig) (*Forest, error) {
	if d == nil || d.Len() == 0 {
		return nil, fmt.Errorf("fit: empty dataset")
	}
	classes := uniqueSorted(d.Y)
	if len(classes) < 2 {
		return nil, fmt.Errorf("fit: need at least two classes, got %v", classes)
	}
	cfg = cfg.withDefaults(len(d.FeatureNames))

	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, d.Len())
	for i, label := range d.Y {
		y[i] = classIdx[label]
	}

	f := &Forest{
		Format:       FormatV1,
		Name:         cfg.Name,
		FeatureNames: append([]string(nil), d.FeatureNames...),
		ClassLabels:  classes,
		Trees:        make([]Tree, 0, cfg.Trees),
		Meta: Meta{
			TrainedAt: time.Now().UTC(),
			Target:    d.Target,
			Samples:   d.Len(),
			Seed:      cfg.Seed,
		},
	}
	for t := 0; t < cfg.Trees; t++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(t)))
		sample := make([]int, d.Len())
		for i := range sample {
			sample[i] = rng.Intn(d.Len())
		}
		g := grower{x: d.X, y: y, nClasses: len(classes), cfg: cfg, rng: rng}
		g.grow(sample, 0)
		f.Trees = append(f.Trees, Tree{Nodes: g.nodes})
	}
	return f, nil
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

type grower struct {
	x        [][]float64
	y        []int
	nClasses int
	cfg      TrainConfig
	rng      *rand.Rand
	nodes    []Node
}

// grow appends the subtree for idx in pre-order and returns its root index.
func (g *grower) grow(idx []int, depth int) int {
	at := len(g.nodes)
	g.nodes = append(g.nodes, Node{Feature: -1})

	counts := g.counts(idx)
	if g.isPure(counts) || len(idx) < g.cfg.MinSamplesSplit || (g.cfg.MaxDepth > 0 && depth >= g.cfg.MaxDepth) {
		g.nodes[at].Value = proportions(counts, len(idx))
		return at
	}

	feature, threshold, ok := g.bestSplit(idx)
	if !ok {
		g.nodes[at].Value = proportions(counts, len(idx))
		return at
	}
	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[at] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return at
}

func (g *grower) counts(idx []int) []float64 {
	c := make([]float64, g.nClasses)
	for _, i := range idx {
		c[g.y[i]]++
	}
	return c
}

func (g *grower) isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func proportions(counts []float64, n int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = c / float64(n)
	}
	return out
}

// bestSplit draws features in random order and stops once MaxFeatures
// non-constant candidates were scored.
func (g *grower) bestSplit(idx []int) (int, float64, bool) {
	nFeatures := len(g.x[idx[0]])
	order := g.rng.Perm(nFeatures)
	sorted := make([]int, len(idx))

	bestScore := math.Inf(-1)
	bestFeature, bestThreshold := -1, 0.0
	scored := 0
	for _, feature := range order {
		if scored >= g.cfg.MaxFeatures {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return g.x[sorted[a]][feature] < g.x[sorted[b]][feature] })
		if g.x[sorted[0]][feature] == g.x[sorted[len(sorted)-1]][feature] {
			continue
		}
		scored++

		left := make([]float64, g.nClasses)
		right := g.counts(sorted)
		n := len(sorted)
		for k := 0; k < n-1; k++ {
			c := g.y[sorted[k]]
			left[c]++
			right[c]--
			cur, next := g.x[sorted[k]][feature], g.x[sorted[k+1]][feature]
			if cur == next {
				continue
			}
			score := purity(left, k+1) + purity(right, n-k-1)
			if score > bestScore {
				thr := cur + (next-cur)/2
				if thr >= next {
					thr = cur
				}
				bestScore = score
				bestFeature = feature
				bestThreshold = thr
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// purity is sum(c^2)/n; maximising it over both children minimises the
// weighted Gini impurity.
func purity(counts []float64, n int) float64 {
	var s float64
	for _, c := range counts {
		s += c * c
	}
	return s / float64(n)
}
