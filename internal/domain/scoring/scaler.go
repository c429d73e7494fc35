package scoring

import (
	"fmt"
	"math"
)

// Scaler is a z-score transform keyed by feature name. Features it does not
// know pass through unchanged; a zero deviation is treated as one.
type Scaler struct {
	Mean map[string]float64 `json:"mean"`
	Std  map[string]float64 `json:"std"`
}

// Validate rejects deviations that are negative or not finite.
func (s *Scaler) Validate() error {
	for name, v := range s.Std {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: scaler std for %q is %v", ErrInvalidArtifact, name, v)
		}
	}
	for name, v := range s.Mean {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: scaler mean for %q is %v", ErrInvalidArtifact, name, v)
		}
	}
	return nil
}

// Apply returns a scaled copy of row, whose columns are named by columns.
func (s *Scaler) Apply(columns []string, row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = v
		if i >= len(columns) {
			continue
		}
		mean, ok := s.Mean[columns[i]]
		if !ok {
			continue
		}
		std := s.Std[columns[i]]
		if std == 0 {
			std = 1
		}
		out[i] = (v - mean) / std
	}
	return out
}
