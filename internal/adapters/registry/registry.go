// Package registry holds the loaded model scorers, their ensemble weights and
// the tier entitlement rules that decide which callers may use them.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/pkg/logger"
	"github.com/okian/furlong/pkg/metrics"
)

// Entry is one model to register.
type Entry struct {
	Scorer scoring.Scorer
	// Format is informational: linear, tree or remote.
	Format string
	// Weight is the ensemble weight; nil means 1.
	Weight *float64
	// Entitled is a CEL expression over tier and model. Empty admits everyone.
	Entitled string
}

type registered struct {
	Entry
	weight float64
	rule   rule
}

// Registry maps model ids to scorers. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	version string
	order   []string
	models  map[string]*registered
	log     logger.Logger
}

// New registers entries in order. Ids must be unique and rules must compile.
func New(entries []Entry, opts ...Option) (*Registry, error) {
	r := &Registry{
		models: make(map[string]*registered, len(entries)),
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, e := range entries {
		if e.Scorer == nil {
			return nil, fmt.Errorf("registry: nil scorer")
		}
		id := e.Scorer.ID()
		if _, dup := r.models[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		ru, err := compileRule(e.Entitled)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", id, err)
		}
		w := 1.0
		if e.Weight != nil {
			w = *e.Weight
		}
		r.models[id] = &registered{Entry: e, weight: w, rule: ru}
		r.order = append(r.order, id)
	}
	metrics.UpdateModelsLoaded(len(r.order))
	return r, nil
}

// Scorer returns the scorer registered under id.
func (r *Registry) Scorer(id string) (scoring.Scorer, bool) {
	m, ok := r.models[id]
	if !ok {
		return nil, false
	}
	return m.Scorer, true
}

// IDs returns every model id in manifest order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered models.
func (r *Registry) Len() int { return len(r.order) }

// Version returns the manifest version.
func (r *Registry) Version() string { return r.version }

// Weights returns the ensemble weight of every model.
func (r *Registry) Weights() map[string]float64 {
	out := make(map[string]float64, len(r.models))
	for id, m := range r.models {
		out[id] = m.weight
	}
	return out
}

// Entitled returns the ids a tier may use, in manifest order. The result is
// never nil, so an unentitled tier selects no models rather than all of them.
// A rule that fails to evaluate denies access.
func (r *Registry) Entitled(tier string) []string {
	tier = NormalizeTier(tier)
	out := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if r.allows(tier, id) {
			out = append(out, id)
		}
	}
	return out
}

// Allowed reports whether tier may use model id.
func (r *Registry) Allowed(tier, id string) (bool, error) {
	if _, ok := r.models[id]; !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return r.allows(NormalizeTier(tier), id), nil
}

func (r *Registry) allows(tier, id string) bool {
	ok, err := r.models[id].rule.allows(tier, id)
	if err != nil {
		r.log.Warn(context.Background(), "entitlement rule failed, denying",
			logger.String("model", id), logger.String("tier", tier), logger.Error(err))
		return false
	}
	return ok
}

// Info describes every model and whether tier may use it.
func (r *Registry) Info(tier string) types.ModelCatalog {
	tier = NormalizeTier(tier)
	cat := types.ModelCatalog{Version: r.version, Tier: tier, Models: make([]types.ModelInfo, 0, len(r.order))}
	for _, id := range r.order {
		m := r.models[id]
		schema := m.Scorer.Schema()
		cat.Models = append(cat.Models, types.ModelInfo{
			ID:           id,
			Kind:         string(m.Scorer.Kind()),
			Format:       m.Format,
			FeatureCount: len(schema),
			Features:     schema,
			Weight:       m.weight,
			Entitled:     r.allows(tier, id),
		})
	}
	return cat
}

// NormalizeTier lower-cases and trims a tier name.
func NormalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}
