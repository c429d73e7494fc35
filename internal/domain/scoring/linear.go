package scoring

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/furlong/internal/domain/features"
)

// LinearArtifact is the serialized form of a linear model.
type LinearArtifact struct {
	Weights map[string]float64 `json:"weights"`
	Bias    float64            `json:"bias"`
}

// LinearModel scores bias + w·x. Probability models pass the margin through
// a sigmoid.
type LinearModel struct {
	base
	weights []float64
	bias    float64
}

// NewLinearModel aligns the artifact's weights with schema. Every weight must
// name a schema feature; schema features without a weight contribute nothing.
func NewLinearModel(id string, kind Kind, schema features.Schema, art LinearArtifact, opts ...Option) (*LinearModel, error) {
	b, err := newBase(id, kind, schema, opts)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(schema))
	for i, name := range schema {
		index[name] = i
	}
	weights := make([]float64, len(schema))
	for name, w := range art.Weights {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: model %s weights unknown feature %q", ErrInvalidArtifact, id, name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: model %s weight for %q is %v", ErrInvalidArtifact, id, name, w)
		}
		weights[i] = w
	}
	return &LinearModel{base: b, weights: weights, bias: art.Bias}, nil
}

// Score implements Scorer.
func (m *LinearModel) Score(ctx context.Context, x Matrix) ([]float64, error) {
	rows, err := m.prepare(ctx, x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		margin := m.bias
		for j, v := range row {
			margin += m.weights[j] * v
		}
		out[i] = m.finish(margin)
	}
	return out, nil
}
