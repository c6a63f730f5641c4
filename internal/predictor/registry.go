package predictor

import (
	"fmt"

	"github.com/Skufu/healthpredict/internal/config"
	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/model"
)

// Loader opens a model artifact.
type Loader func(path string) (model.Classifier, error)

// LoadForest is the default Loader.
func LoadForest(path string) (model.Classifier, error) {
	return model.Load(path)
}

// Registry holds the read-only predictors in configuration order.
type Registry struct {
	order []*Predictor
	byKey map[string]*Predictor
}

// NewRegistry loads every configured model. A single failure fails the
// whole registry.
func NewRegistry(file *config.ModelsFile, load Loader) (*Registry, error) {
	if load == nil {
		load = LoadForest
	}
	r := &Registry{byKey: make(map[string]*Predictor, len(file.Models))}
	for _, profile := range file.Models {
		m, err := load(profile.Artifact)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", profile.Key, err)
		}
		p, err := New(profile, m)
		if err != nil {
			return nil, err
		}
		logger.Infof("model %s loaded: %d features, classes %v", profile.Key, p.spec.Len(), m.Classes())
		r.order = append(r.order, p)
		r.byKey[profile.Key] = p
	}
	return r, nil
}

func (r *Registry) Get(key string) (*Predictor, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

func (r *Registry) All() []*Predictor {
	out := make([]*Predictor, len(r.order))
	copy(out, r.order)
	return out
}
