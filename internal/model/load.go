package model

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// ErrModelLoad is matched by every LoadError.
var ErrModelLoad = errors.New("model load failure")

// LoadError reports a missing or corrupt artifact.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrModelLoad }

//go:embed schema/forest.schema.json
var forestSchemaJSON string

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func forestSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("forest.schema.json", bytes.NewReader([]byte(forestSchemaJSON))); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("forest.schema.json")
	})
	return schemaCompiled, schemaErr
}

// Load reads and validates a forest artifact from disk.
func Load(path string) (*Forest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	f, err := Decode(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}

// Decode validates raw against the artifact schema and the forest's
// structural rules before returning it.
func Decode(raw []byte) (*Forest, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("artifact is not valid JSON")
	}
	if format := gjson.GetBytes(raw, "format").String(); format != FormatV1 {
		return nil, fmt.Errorf("unsupported artifact format %q", format)
	}

	sch, err := forestSchema()
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("artifact schema: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forest) validate() error {
	nf, nc := len(f.FeatureNames), len(f.ClassLabels)
	for ti, t := range f.Trees {
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				if len(n.Value) != nc {
					return fmt.Errorf("tree %d node %d: leaf has %d class weights, want %d", ti, ni, len(n.Value), nc)
				}
				continue
			}
			if n.Feature >= nf {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d: child index %d out of range", ti, ni, child)
				}
			}
		}
	}
	return nil
}
