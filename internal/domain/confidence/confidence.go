// Package confidence turns a fused score into a bounded confidence relative to
// the rest of its group.
package confidence

import (
	"math"
	"sort"
)

const (
	normWeight       = 0.7
	separationWeight = 0.3
	separationGain   = 2.0
	// Neutral is the confidence of every member of a group without spread.
	Neutral = 0.5
)

// Score computes the confidence of score within group, which must include
// score itself. Missing (NaN) values in group are ignored.
//
//	norm       = (score - min) / (max - min)
//	separation = (score - next lower score) / (max - min), 0 when lowest or tied
//	confidence = 0.7*norm + 0.3*min(2*separation, 1), clamped to [0,1]
//
// A group without spread (one member, or all equal) gives Neutral.
func Score(score float64, group []float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	next := math.Inf(-1)
	same := 0
	for _, v := range group {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if v < score && v > next {
			next = v
		}
		if v == score {
			same++
		}
	}
	if math.IsInf(lo, 1) {
		lo, hi = score, score
	}

	rng := hi - lo
	if rng <= 0 {
		return Neutral
	}
	norm := (score - lo) / rng
	var sep float64
	if same < 2 && !math.IsInf(next, -1) {
		sep = (score - next) / rng
	}
	return clamp01(normWeight*norm + separationWeight*math.Min(separationGain*sep, 1))
}

// Scores computes the confidence of every member of a group, aligned with the input.
func Scores(group []float64) []float64 {
	out := make([]float64, len(group))
	for i, s := range group {
		out[i] = Score(s, group)
	}
	return out
}

// Degenerate reports whether a group has fewer than two usable scores or no
// spread at all. Confidence still works on such groups via the neutral fallback.
func Degenerate(group []float64) bool {
	var usable []float64
	for _, v := range group {
		if !math.IsNaN(v) {
			usable = append(usable, v)
		}
	}
	if len(usable) < 2 {
		return true
	}
	sort.Float64s(usable)
	return usable[0] == usable[len(usable)-1]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
