package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ModelsFile is the declarative model registry.
type ModelsFile struct {
	Models []ModelProfile `mapstructure:"models"`
}

// ModelProfile pairs an artifact with everything needed to reconcile input
// for it and present its output.
type ModelProfile struct {
	Key           string            `mapstructure:"key"`
	Title         string            `mapstructure:"title"`
	Artifact      string            `mapstructure:"artifact"`
	PositiveLabel string            `mapstructure:"positive_label"`
	Labels        []ClassLabel      `mapstructure:"labels"`
	Rename        map[string]string `mapstructure:"rename"`
	Fields        []FieldProfile    `mapstructure:"fields"`
}

// ClassLabel is a list rather than a map so class literals keep their case.
type ClassLabel struct {
	Class string `mapstructure:"class"`
	Text  string `mapstructure:"text"`
}

type FieldProfile struct {
	Name     string             `mapstructure:"name"`
	Display  string             `mapstructure:"display"`
	Min      *float64           `mapstructure:"min"`
	Max      *float64           `mapstructure:"max"`
	Encoding map[string]float64 `mapstructure:"encoding"`
}

// LoadModels reads the model registry. Relative artifact paths resolve
// against the directory of the file.
func LoadModels(path string) (*ModelsFile, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("models config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading models config failed (%s): %w", path, err)
	}
	var file ModelsFile
	if err := v.Unmarshal(&file, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing models config failed: %w", err)
	}

	dir := filepath.Dir(path)
	for i := range file.Models {
		m := &file.Models[i]
		m.Key = strings.TrimSpace(m.Key)
		m.PositiveLabel = strings.TrimSpace(m.PositiveLabel)
		if m.Artifact != "" && !filepath.IsAbs(m.Artifact) {
			m.Artifact = filepath.Join(dir, m.Artifact)
		}
		if m.Title == "" {
			m.Title = m.Key
		}
	}
	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *ModelsFile) validate() error {
	if len(f.Models) == 0 {
		return fmt.Errorf("models config: no models declared")
	}
	seen := make(map[string]bool, len(f.Models))
	for _, m := range f.Models {
		if m.Key == "" {
			return fmt.Errorf("models config: model without key")
		}
		if seen[m.Key] {
			return fmt.Errorf("models config: duplicate model %q", m.Key)
		}
		seen[m.Key] = true
		if m.Artifact == "" {
			return fmt.Errorf("models config: %s: artifact is required", m.Key)
		}
		if m.PositiveLabel == "" {
			return fmt.Errorf("models config: %s: positive_label is required", m.Key)
		}
		for _, fld := range m.Fields {
			if fld.Name == "" {
				return fmt.Errorf("models config: %s: field without name", m.Key)
			}
			if fld.Min != nil && fld.Max != nil && *fld.Min > *fld.Max {
				return fmt.Errorf("models config: %s.%s: min %g > max %g", m.Key, fld.Name, *fld.Min, *fld.Max)
			}
		}
	}
	return nil
}

// LabelText returns the display text for a class, or the class itself.
func (m ModelProfile) LabelText(class string) string {
	for _, l := range m.Labels {
		if l.Class == class && l.Text != "" {
			return l.Text
		}
	}
	return class
}
