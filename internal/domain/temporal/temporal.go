// Package temporal enforces that no information dated at or after an event is
// used to describe that event.
package temporal

import (
	"time"

	"github.com/okian/furlong/internal/domain/model"
)

// Report counts how many historical values were checked and how many were
// dropped. Excluded rows are never silently ignored; callers surface the count.
type Report struct {
	Checked  int
	Excluded int
}

// Add merges another report into r.
func (r *Report) Add(o Report) {
	r.Checked += o.Checked
	r.Excluded += o.Excluded
}

// Usable reports whether a value timestamped prevAt may describe an event at
// eventAt. The comparison is strict; an unknown event time admits nothing.
func Usable(eventAt, prevAt time.Time) bool {
	if eventAt.IsZero() || prevAt.IsZero() {
		return false
	}
	return prevAt.Before(eventAt)
}

// Check validates a single reference and returns ErrTemporalViolation when it
// is not strictly before the event.
func Check(eventAt, prevAt time.Time) error {
	if Usable(eventAt, prevAt) {
		return nil
	}
	return ErrTemporalViolation
}

// FilterRecords keeps the records strictly earlier than eventAt, preserving order.
// The input slice is not modified.
func FilterRecords(eventAt time.Time, records []model.HistoricalRecord) ([]model.HistoricalRecord, Report) {
	rep := Report{Checked: len(records)}
	kept := make([]model.HistoricalRecord, 0, len(records))
	for _, rec := range records {
		if Usable(eventAt, rec.Date) {
			kept = append(kept, rec)
			continue
		}
		rep.Excluded++
	}
	return kept, rep
}
