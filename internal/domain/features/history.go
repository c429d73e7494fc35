package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/furlong/internal/domain/model"
)

const (
	defaultFieldSize  = 15
	decayHalfLifeDays = 90.0
	formTrendWindow   = 3
	rankWindow        = 10
	shortWindow       = 5
	hoursPerDay       = 24
)

// daysBetween counts whole days from earlier to later.
func daysBetween(earlier, later time.Time) float64 {
	return math.Floor(later.Sub(earlier).Hours() / hoursPerDay)
}

// perfIndex maps a placing to [0,1]: 1 for a win, 0 for last or a non-finisher.
func perfIndex(rec model.HistoricalRecord, fallbackField int) float64 {
	if !rec.Finished() {
		return 0
	}
	field := rec.FieldSize
	if field <= 0 {
		field = fallbackField
	}
	span := math.Max(float64(field-1), 1)
	return clamp01(1 - float64(rec.Position-1)/span)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// stddev is the sample standard deviation; fewer than two values give 0.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// historyFeatures computes the rolling and form aggregates from records that
// already passed the temporal filter. Missing inputs leave a feature unset so
// the documented default applies.
func historyFeatures(entry model.RawEntry, eventAt time.Time, records []model.HistoricalRecord, fieldSize int, out map[string]float64) {
	if len(records) == 0 {
		return
	}
	recent := append([]model.HistoricalRecord(nil), records...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date) })

	out[DaysSinceLastRace] = daysBetween(recent[0].Date, eventAt)

	var placed []model.HistoricalRecord // runs with a recorded placing, most recent first
	for _, r := range recent {
		if r.Position > 0 {
			placed = append(placed, r)
		}
	}

	var finishedPos []float64
	for _, r := range placed {
		if r.Finished() {
			finishedPos = append(finishedPos, float64(r.Position))
		}
	}
	if n := min(len(finishedPos), rankWindow); n > 0 {
		out[RankRollingMean10] = mean(finishedPos[:n])
		out[RankRollingStd10] = stddev(finishedPos[:n])
	}
	if len(finishedPos) >= formTrendWindow {
		l1, l2, l3 := finishedPos[0], finishedPos[1], finishedPos[2]
		out[FormTrend] = (3*l1/defaultFieldSize + 2*l2/defaultFieldSize + l3/defaultFieldSize) / 6.0
	}

	if len(placed) > 0 {
		n := min(len(placed), shortWindow)
		top3 := make([]float64, n)
		perf := make([]float64, n)
		for i, r := range placed[:n] {
			if r.Finished() && r.Position <= 3 {
				top3[i] = 1
			}
			perf[i] = perfIndex(r, fieldSize)
		}
		out[Top3RollingMean5] = mean(top3)
		out[Top3RollingStd5] = stddev(top3)
		out[PerfRollingMean5] = mean(perf)
		out[PerfRollingStd5] = stddev(perf)
		out[PrevPerfIndex] = perf[0]

		var num, den float64
		for _, r := range placed {
			w := math.Exp(-math.Ln2 * daysBetween(r.Date, eventAt) / decayHalfLifeDays)
			num += w * perfIndex(r, fieldSize)
			den += w
		}
		if den > 0 {
			out[DecayForm90] = num / den
		}
	}

	if dist, ok := ParseDistance(string(entry.Distance)); ok && entry.Track != "" {
		var pos []float64
		for _, r := range recent {
			if r.Finished() && strings.EqualFold(r.Track, entry.Track) && math.Abs(r.Distance-dist) < 0.5 {
				pos = append(pos, float64(r.Position))
			}
		}
		if len(pos) > 0 {
			out[TrackDistAvgPos] = mean(pos)
		}
	}

	out[ClassRiseFall] = sign(float64(RaceClassScore(entry.Details, entry.Stakes) - recent[0].ClassScore))

	if entry.Weight != nil {
		var ws []float64
		for _, r := range recent {
			if r.Weight > 0 {
				ws = append(ws, r.Weight)
			}
		}
		if len(ws) > 0 {
			out[WeightDifferential] = *entry.Weight - mean(ws)
		}
	}

	if entry.Track != "" {
		out[DaysSinceTrackWin] = noTrackWinDays
		for _, r := range recent {
			if r.Won() && strings.EqualFold(r.Track, entry.Track) {
				out[DaysSinceTrackWin] = math.Min(daysBetween(r.Date, eventAt), noTrackWinDays)
				break
			}
		}
		out[DaysSinceTrackWinNorm] = 1 - out[DaysSinceTrackWin]/noTrackWinDays
	}
}
