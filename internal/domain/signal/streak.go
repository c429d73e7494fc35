package signal

import (
	"fmt"
	"math"
)

// Streak is the chance of one entity winning a run of independent events.
type Streak struct {
	Probability float64
	// Odds is 1/Probability, or nil when the probability is zero.
	Odds           *float64
	Interpretation string
}

// StreakProbability multiplies independent per-event win probabilities.
func StreakProbability(probs []float64) (Streak, error) {
	if len(probs) == 0 {
		return Streak{}, ErrEmptyStreak
	}
	p := 1.0
	for i, v := range probs {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return Streak{}, fmt.Errorf("%w: race %d has %v", ErrInvalidProbability, i+1, v)
		}
		p *= v
	}
	if p == 0 {
		return Streak{Interpretation: "Streak probability is zero"}, nil
	}
	odds := 1 / p
	return Streak{
		Probability: p,
		Odds:        &odds,
		Interpretation: fmt.Sprintf("The probability of the same horse winning all %d consecutive races is %.6f (approximately 1 in %.0f)",
			len(probs), p, odds),
	}, nil
}
