package model

import "time"

// HistoricalRecord is one prior run of an entity.
type HistoricalRecord struct {
	Date       time.Time `json:"date"`
	Track      string    `json:"track,omitempty"`
	Distance   float64   `json:"distance,omitempty"`
	Position   int       `json:"position,omitempty"` // cleaned, see CleanPosition; 0 means unknown
	FieldSize  int       `json:"field_size,omitempty"`
	Weight     float64   `json:"weight,omitempty"`
	ClassScore int       `json:"class_score,omitempty"`
}

// Won reports whether the run was a win.
func (r HistoricalRecord) Won() bool { return r.Position == 1 }

// Finished reports whether the entity completed the run with a known placing.
func (r HistoricalRecord) Finished() bool {
	return r.Position > 0 && r.Position < PositionLast
}

// HistoricalContext is everything known about an entity before an event.
// Rates are optional aggregates computed upstream over the whole field.
type HistoricalContext struct {
	Records        []HistoricalRecord `json:"records,omitempty"`
	JockeyWinRate  *float64           `json:"jockey_win_rate,omitempty"`
	TrainerWinRate *float64           `json:"trainer_win_rate,omitempty"`
	BarrierWinRate *float64           `json:"barrier_win_rate,omitempty"`
}
