// Package scoring wraps trained models behind one capability: turn a feature
// matrix into one score per row.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/furlong/internal/domain/features"
)

// Kind tells the fuser how to read a scorer's output.
type Kind string

const (
	// Probability scores lie in [0,1]; higher is more likely to win.
	Probability Kind = "probability"
	// Ranking scores are unbounded; only their relative order means anything.
	Ranking Kind = "ranking"
)

// ParseKind accepts the manifest spelling of a kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Probability:
		return Probability, nil
	case Ranking:
		return Ranking, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidArtifact, s)
	}
}

// Scorer is one trained model. Implementations are read-only after
// construction and safe for concurrent use.
type Scorer interface {
	ID() string
	Kind() Kind
	Schema() features.Schema
	// Score returns one value per row in row order. A matrix whose columns
	// differ from Schema in membership or order fails with ErrSchemaMismatch.
	Score(ctx context.Context, m Matrix) ([]float64, error)
}

// Matrix holds one row per entity, all projected onto the same columns.
type Matrix struct {
	Columns features.Schema
	Rows    [][]float64
}

// NewMatrix stacks vectors that share a schema.
func NewMatrix(columns features.Schema, vectors []features.Vector) (Matrix, error) {
	if err := columns.Validate(); err != nil {
		return Matrix{}, err
	}
	m := Matrix{Columns: columns, Rows: make([][]float64, 0, len(vectors))}
	for i, v := range vectors {
		names := v.Names()
		if len(names) != len(columns) {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrSchemaMismatch, i, len(names), len(columns))
		}
		for j := range names {
			if names[j] != columns[j] {
				return Matrix{}, fmt.Errorf("%w: row %d column %d is %q, want %q", ErrSchemaMismatch, i, j, names[j], columns[j])
			}
		}
		m.Rows = append(m.Rows, v.Values())
	}
	return m, nil
}

// Len returns the number of rows.
func (m Matrix) Len() int { return len(m.Rows) }

// CheckColumns compares a matrix against a declared schema without guessing
// any alignment.
func CheckColumns(modelID string, want features.Schema, got features.Schema) error {
	if len(want) == len(got) {
		same := true
		for i := range want {
			if want[i] != got[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}

	mismatch := &SchemaMismatchError{ModelID: modelID}
	have := make(map[string]struct{}, len(got))
	for _, c := range got {
		have[c] = struct{}{}
	}
	need := make(map[string]struct{}, len(want))
	for _, c := range want {
		need[c] = struct{}{}
		if _, ok := have[c]; !ok {
			mismatch.Missing = append(mismatch.Missing, c)
		}
	}
	for _, c := range got {
		if _, ok := need[c]; !ok {
			mismatch.Unexpected = append(mismatch.Unexpected, c)
		}
	}
	mismatch.Reordered = len(mismatch.Missing) == 0 && len(mismatch.Unexpected) == 0
	return mismatch
}

// Option applies a configuration option to a model.
type Option func(*base)

// WithScaler applies a mean/variance transform to rows before scoring.
func WithScaler(s *Scaler) Option {
	return func(b *base) {
		if s != nil {
			b.scaler = s
		}
	}
}

// base carries what every model shares.
type base struct {
	id     string
	kind   Kind
	schema features.Schema
	scaler *Scaler
}

func newBase(id string, kind Kind, schema features.Schema, opts []Option) (base, error) {
	if strings.TrimSpace(id) == "" {
		return base{}, fmt.Errorf("%w: empty model id", ErrInvalidArtifact)
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return base{}, err
	}
	if err := schema.Validate(); err != nil {
		return base{}, fmt.Errorf("model %s: %w", id, err)
	}
	b := base{id: id, kind: kind, schema: append(features.Schema(nil), schema...)}
	for _, opt := range opts {
		opt(&b)
	}
	return b, nil
}

func (b *base) ID() string              { return b.id }
func (b *base) Kind() Kind              { return b.kind }
func (b *base) Schema() features.Schema { return append(features.Schema(nil), b.schema...) }

// prepare validates the matrix and returns rows ready for the model.
func (b *base) prepare(ctx context.Context, m Matrix) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("model %s: %w", b.id, err)
	}
	if err := CheckColumns(b.id, b.schema, m.Columns); err != nil {
		return nil, err
	}
	for i, r := range m.Rows {
		if len(r) != len(m.Columns) {
			return nil, fmt.Errorf("%w: model %s row %d has %d values, want %d",
				ErrSchemaMismatch, b.id, i, len(r), len(m.Columns))
		}
	}
	if b.scaler == nil {
		return m.Rows, nil
	}
	rows := make([][]float64, len(m.Rows))
	for i, r := range m.Rows {
		rows[i] = b.scaler.Apply(b.schema, r)
	}
	return rows, nil
}

// finish maps a raw margin onto the kind's scale.
func (b *base) finish(margin float64) float64 {
	if b.kind == Probability {
		return sigmoid(margin)
	}
	return margin
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
