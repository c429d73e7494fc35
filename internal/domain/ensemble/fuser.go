// Package ensemble combines per-model scores for the same entities into one
// fused score per entity.
package ensemble

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Strategy selects how scores from different models are combined.
type Strategy string

const (
	// Mean averages raw scores over the models that produced one. Probability
	// and ranking outputs are mixed as-is and treated as "higher is better";
	// this is a known approximation when the scales differ.
	Mean Strategy = "mean"
	// MinMax rescales each model to [0,1] within the batch before averaging,
	// which makes mixed-kind ensembles scale-fair.
	MinMax Strategy = "minmax"
	// Weighted is Mean with per-model weights.
	Weighted Strategy = "weighted"
)

// ParseStrategy accepts a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Mean, "":
		return Mean, nil
	case MinMax:
		return MinMax, nil
	case Weighted:
		return Weighted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Missing marks an entity a model did not score.
var Missing = math.NaN()

// IsMissing reports whether v marks an absent score.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Option applies a configuration option to the Fuser.
type Option func(*Fuser)

// WithStrategy selects the fusion strategy.
func WithStrategy(s Strategy) Option {
	return func(f *Fuser) {
		if s != "" {
			f.strategy = s
		}
	}
}

// WithWeights sets per-model weights for the weighted strategy. Models without
// a weight count as 1; negative weights are ignored.
func WithWeights(weights map[string]float64) Option {
	return func(f *Fuser) {
		f.weights = make(map[string]float64, len(weights))
		for id, w := range weights {
			if w >= 0 && !math.IsNaN(w) && !math.IsInf(w, 0) {
				f.weights[id] = w
			}
		}
	}
}

// Fuser is immutable after construction and safe for concurrent use.
type Fuser struct {
	strategy Strategy
	weights  map[string]float64
}

// NewFuser creates a fuser using the mean strategy unless told otherwise.
func NewFuser(opts ...Option) *Fuser {
	f := &Fuser{strategy: Mean, weights: map[string]float64{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Strategy returns the active strategy.
func (f *Fuser) Strategy() Strategy { return f.strategy }

// Weight returns the weight a model carries under the weighted strategy.
func (f *Fuser) Weight(modelID string) float64 {
	if w, ok := f.weights[modelID]; ok {
		return w
	}
	return 1
}

// Fused is the outcome for one batch.
type Fused struct {
	// Scores holds one value per entity; Missing where no model scored it.
	Scores []float64
	// Used counts the models that contributed to each entity.
	Used []int
	// Models lists the contributing model ids in the order they were combined.
	Models []string
}

// Fuse combines scoresByModel, where every slice has n entries aligned by
// entity index and Missing marks a gap. A model absent from the map
// contributes nothing. If no model scored any entity the batch fails with
// ErrNoScoresAvailable.
func (f *Fuser) Fuse(n int, scoresByModel map[string][]float64) (Fused, error) {
	if n < 0 {
		return Fused{}, fmt.Errorf("%w: negative entity count", ErrInvalidInput)
	}
	ids := make([]string, 0, len(scoresByModel))
	for id, s := range scoresByModel {
		if len(s) != n {
			return Fused{}, fmt.Errorf("%w: model %s has %d scores for %d entities", ErrInvalidInput, id, len(s), n)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	columns := make([][]float64, len(ids))
	for i, id := range ids {
		columns[i] = scoresByModel[id]
		if f.strategy == MinMax {
			columns[i] = rescale(columns[i])
		}
	}

	out := Fused{Scores: make([]float64, n), Used: make([]int, n), Models: ids}
	scored := false
	for e := 0; e < n; e++ {
		var sum, wsum, plain float64
		used := 0
		for i, id := range ids {
			v := columns[i][e]
			if IsMissing(v) || math.IsInf(v, 0) {
				continue
			}
			used++
			plain += v
			w := 1.0
			if f.strategy == Weighted {
				w = f.Weight(id)
			}
			sum += w * v
			wsum += w
		}
		out.Used[e] = used
		switch {
		case used == 0:
			out.Scores[e] = Missing
		case wsum > 0:
			out.Scores[e] = sum / wsum
			scored = true
		default:
			// every contributing model carries zero weight
			out.Scores[e] = plain / float64(used)
			scored = true
		}
	}
	if !scored {
		return out, ErrNoScoresAvailable
	}
	return out, nil
}

// rescale maps the available values of one model onto [0,1]. A model that
// gave every entity the same score maps to 0.5.
func rescale(scores []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		if IsMissing(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(scores))
	for i, v := range scores {
		switch {
		case IsMissing(v) || math.IsInf(v, 0):
			out[i] = Missing
		case hi == lo:
			out[i] = 0.5
		default:
			out[i] = (v - lo) / (hi - lo)
		}
	}
	return out
}
