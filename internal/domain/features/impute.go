package features

import (
	"sort"
	"strings"

	"github.com/okian/furlong/internal/domain/model"
)

// Neutral categories used when nothing better is known.
const (
	DefaultTrackCondition = "GOOD"
	UnknownPerson         = "UNKNOWN"
)

// ImputeReport counts how many values were filled per field.
type ImputeReport struct {
	Weight         int `json:"weight"`
	Age            int `json:"age"`
	TrackCondition int `json:"track_condition"`
	Jockey         int `json:"jockey"`
	Trainer        int `json:"trainer"`
}

// Total is the number of filled values across all fields.
func (r ImputeReport) Total() int {
	return r.Weight + r.Age + r.TrackCondition + r.Jockey + r.Trainer
}

// ImputeBatch fills missing attributes across a batch of entries the way
// offline derivation does. Numeric gaps take the entity's own median over the
// batch, then the batch median. Track condition takes the most frequent value
// at the same track, then DefaultTrackCondition. The input is not modified.
func ImputeBatch(entries []model.RawEntry) ([]model.RawEntry, ImputeReport) {
	var rep ImputeReport
	out := make([]model.RawEntry, len(entries))
	copy(out, entries)

	weightBy, weightAll := collect(entries, func(e model.RawEntry) *float64 { return e.Weight })
	ageBy, ageAll := collect(entries, func(e model.RawEntry) *float64 { return e.Age })
	condByTrack := conditionModes(entries)

	for i := range out {
		e := &out[i]
		if e.Weight == nil {
			if v, ok := pick(weightBy[e.EntityID], weightAll); ok {
				e.Weight = model.Float(v)
				rep.Weight++
			}
		}
		if e.Age == nil {
			if v, ok := pick(ageBy[e.EntityID], ageAll); ok {
				e.Age = model.Float(v)
				rep.Age++
			}
		}
		if strings.TrimSpace(e.TrackCondition) == "" {
			if mode, ok := condByTrack[e.Track]; ok {
				e.TrackCondition = mode
			} else {
				e.TrackCondition = DefaultTrackCondition
			}
			rep.TrackCondition++
		}
		if strings.TrimSpace(e.Jockey) == "" {
			e.Jockey = UnknownPerson
			rep.Jockey++
		}
		if strings.TrimSpace(e.Trainer) == "" {
			e.Trainer = UnknownPerson
			rep.Trainer++
		}
	}
	return out, rep
}

func collect(entries []model.RawEntry, get func(model.RawEntry) *float64) (map[string][]float64, []float64) {
	by := make(map[string][]float64)
	var all []float64
	for _, e := range entries {
		if v := get(e); v != nil {
			by[e.EntityID] = append(by[e.EntityID], *v)
			all = append(all, *v)
		}
	}
	return by, all
}

func pick(own, all []float64) (float64, bool) {
	if len(own) > 0 {
		return median(own), true
	}
	if len(all) > 0 {
		return median(all), true
	}
	return 0, false
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// conditionModes returns the most frequent condition per track. Ties go to the
// lexicographically smallest value so the result does not depend on map order.
func conditionModes(entries []model.RawEntry) map[string]string {
	counts := make(map[string]map[string]int)
	for _, e := range entries {
		c := strings.TrimSpace(e.TrackCondition)
		if c == "" || e.Track == "" {
			continue
		}
		if counts[e.Track] == nil {
			counts[e.Track] = make(map[string]int)
		}
		counts[e.Track][c]++
	}
	modes := make(map[string]string, len(counts))
	for track, byCond := range counts {
		best, bestN := "", 0
		for cond, n := range byCond {
			if n > bestN || (n == bestN && cond < best) {
				best, bestN = cond, n
			}
		}
		modes[track] = best
	}
	return modes
}
