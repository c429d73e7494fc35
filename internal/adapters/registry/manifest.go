package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/validation"
	"github.com/okian/furlong/pkg/logger"
)

// Artifact formats.
const (
	FormatLinear = "linear"
	FormatTree   = "tree"
	FormatRemote = "remote"
)

// Manifest lists the models to load. Relative paths resolve against the
// manifest's directory.
//
//	version: "2.0"
//	scaler: scaler.json
//	models:
//	  - id: lightgbm
//	    kind: probability
//	    format: tree
//	    artifact: lightgbm.json
//	    scaled: true
//	    features: [weight, age, ...]
//	  - id: xgboost
//	    ...
//	    entitled: 'tier in ["premium", "elite"]'
type Manifest struct {
	Version string      `yaml:"version"`
	Scaler  string      `yaml:"scaler,omitempty"`
	Models  []ModelSpec `yaml:"models"`
}

// ModelSpec is one manifest model.
type ModelSpec struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"`
	Format    string   `yaml:"format"`
	Artifact  string   `yaml:"artifact,omitempty"`
	Endpoint  string   `yaml:"endpoint,omitempty"`
	TimeoutMS int      `yaml:"timeout_ms,omitempty"`
	Weight    *float64 `yaml:"weight,omitempty"`
	Scaled    bool     `yaml:"scaled,omitempty"`
	Entitled  string   `yaml:"entitled,omitempty"`
	Features  []string `yaml:"features"`
}

// ParseManifest validates data against the manifest schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := validation.YAML(validation.Manifest, data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Load reads the manifest at path and every artifact it names. Any problem
// fails the whole load; a registry is never partially built.
func Load(ctx context.Context, path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	reg, err := Build(ctx, m, filepath.Dir(path), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	reg.log.Info(ctx, "model registry loaded",
		logger.String("manifest", path), logger.String("version", m.Version), logger.Strings("models", reg.IDs()))
	return reg, nil
}

// Build constructs scorers for a decoded manifest, resolving artifact paths
// against dir.
func Build(ctx context.Context, m *Manifest, dir string, opts ...Option) (*Registry, error) {
	var scaler *scoring.Scaler
	if m.Scaler != "" {
		scaler = &scoring.Scaler{}
		if err := readJSON(validation.Scaler, resolve(dir, m.Scaler), scaler); err != nil {
			return nil, err
		}
		if err := scaler.Validate(); err != nil {
			return nil, err
		}
	}

	entries := make([]Entry, 0, len(m.Models))
	for _, spec := range m.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := buildScorer(spec, dir, scaler)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", spec.ID, err)
		}
		entries = append(entries, Entry{Scorer: s, Format: spec.Format, Weight: spec.Weight, Entitled: spec.Entitled})
	}
	return New(entries, append([]Option{WithVersion(m.Version)}, opts...)...)
}

func buildScorer(spec ModelSpec, dir string, scaler *scoring.Scaler) (scoring.Scorer, error) {
	kind, err := scoring.ParseKind(spec.Kind)
	if err != nil {
		return nil, err
	}
	schema := features.Schema(spec.Features)
	var opts []scoring.Option
	if spec.Scaled {
		if scaler == nil {
			return nil, fmt.Errorf("%w: scaled but the manifest has no scaler", scoring.ErrInvalidArtifact)
		}
		opts = append(opts, scoring.WithScaler(scaler))
	}

	switch spec.Format {
	case FormatLinear:
		var art scoring.LinearArtifact
		if err := readJSON(validation.Linear, resolve(dir, spec.Artifact), &art); err != nil {
			return nil, err
		}
		return scoring.NewLinearModel(spec.ID, kind, schema, art, opts...)
	case FormatTree:
		var art scoring.TreeArtifact
		if err := readJSON(validation.Tree, resolve(dir, spec.Artifact), &art); err != nil {
			return nil, err
		}
		return scoring.NewTreeEnsemble(spec.ID, kind, schema, art, opts...)
	case FormatRemote:
		timeout := time.Duration(spec.TimeoutMS) * time.Millisecond
		return scoring.NewRemoteModel(spec.ID, kind, schema, spec.Endpoint, timeout, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", scoring.ErrInvalidArtifact, spec.Format)
	}
}

func readJSON(document, path string, into any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := validation.JSON(document, data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
