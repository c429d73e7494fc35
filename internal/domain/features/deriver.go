// Package features turns raw race entries into fixed-width numeric vectors that
// match a model's schema.
package features

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/temporal"
)

// Option applies a configuration option to the Deriver.
type Option func(*Deriver)

// WithDefault overrides the neutral default of one feature.
func WithDefault(name string, value float64) Option {
	return func(d *Deriver) {
		if name != "" {
			d.defaults[name] = value
		}
	}
}

// WithFieldSize sets the field size assumed for historical runs that do not
// record one.
func WithFieldSize(n int) Option {
	return func(d *Deriver) {
		if n > 1 {
			d.fieldSize = n
		}
	}
}

// Deriver builds feature vectors. It holds no mutable state after construction
// and is safe for concurrent use.
type Deriver struct {
	defaults  map[string]float64
	fieldSize int
}

// NewDeriver creates a deriver with the documented defaults.
func NewDeriver(opts ...Option) *Deriver {
	d := &Deriver{
		defaults:  maps.Clone(Defaults),
		fieldSize: defaultFieldSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FieldSize returns the field size assumed for runs that do not record one.
func (d *Deriver) FieldSize() int { return d.fieldSize }

// Default returns the value used for name when it cannot be derived.
func (d *Deriver) Default(name string) float64 {
	if v, ok := d.defaults[name]; ok {
		return v
	}
	return UnknownFeatureDefault
}

// Diagnostics describes what a derivation could and could not use.
type Diagnostics struct {
	Temporal       temporal.Report
	HistoryRecords int  // records that survived the temporal filter
	PrevDropped    bool // the entry's own previous-run reference was not before the race
	DateKnown      bool
}

// Profile is every feature derivable from one entry, before projection onto a
// particular schema.
type Profile struct {
	values   map[string]float64
	defaults map[string]float64
}

// Value returns the derived value of name, or its default.
func (p Profile) Value(name string) float64 {
	if v, ok := p.values[name]; ok {
		return v
	}
	if v, ok := p.defaults[name]; ok {
		return v
	}
	return UnknownFeatureDefault
}

// Derived reports whether name was computed from the inputs rather than defaulted.
func (p Profile) Derived(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Project lays the profile out in schema order. Every schema name gets a value.
func (p Profile) Project(schema Schema) (Vector, error) {
	if err := schema.Validate(); err != nil {
		return Vector{}, err
	}
	v := Vector{names: append([]string(nil), schema...), values: make([]float64, len(schema))}
	for i, name := range schema {
		v.values[i] = p.Value(name)
	}
	return v, nil
}

// Derive is Prepare followed by Project.
func (d *Deriver) Derive(entry model.RawEntry, schema Schema, history *model.HistoricalContext) (Vector, Diagnostics, error) {
	if err := schema.Validate(); err != nil {
		return Vector{}, Diagnostics{}, err
	}
	p, diag, err := d.Prepare(entry, history)
	if err != nil {
		return Vector{}, diag, err
	}
	v, err := p.Project(schema)
	return v, diag, err
}

// Prepare computes every derivable feature of entry. history may be nil, in
// which case historical aggregates keep their neutral defaults.
func (d *Deriver) Prepare(entry model.RawEntry, history *model.HistoricalContext) (Profile, Diagnostics, error) {
	var diag Diagnostics
	if err := entry.Validate(false); err != nil {
		return Profile{}, diag, err
	}

	out := make(map[string]float64)
	eventAt, dateKnown := model.ParseDate(entry.Date)
	diag.DateKnown = dateKnown

	if dist, ok := ParseDistance(string(entry.Distance)); ok {
		out[DistanceNumeric] = dist
	}
	out[RaceClass] = float64(RaceClassScore(entry.Details, entry.Stakes))
	if entry.Weight != nil {
		out[Weight] = *entry.Weight
	}
	if entry.Age != nil {
		out[Age] = *entry.Age
		out[AgeFactor] = AgeFactorFor(*entry.Age)
	}
	if entry.Barrier != nil {
		out[Barrier] = *entry.Barrier
	}
	if dateKnown {
		_, week := eventAt.ISOWeek()
		out[Year] = float64(eventAt.Year())
		out[Month] = float64(eventAt.Month())
		out[Day] = float64(eventAt.Day())
		out[DayOfWeek] = float64((int(eventAt.Weekday()) + 6) % 7) // Monday = 0
		out[WeekOfYear] = float64(week)
	}
	if j := strings.TrimSpace(entry.Jockey); j == "" || strings.EqualFold(j, "UNKNOWN") {
		out[JockeyUnknown] = 1
	} else {
		out[JockeyUnknown] = 0
	}

	setIndicator(out, TrackPrefix, entry.Track)
	setIndicator(out, RaceTypePrefix, entry.RaceType)
	setIndicator(out, TrackConditionPrefix, entry.TrackCondition)

	d.previousRun(entry, eventAt, out, &diag)

	if history != nil {
		kept, rep := temporal.FilterRecords(eventAt, history.Records)
		diag.Temporal.Add(rep)
		diag.HistoryRecords = len(kept)
		historyFeatures(entry, eventAt, kept, d.fieldSize, out)
		setRate(out, JockeyWinRate, history.JockeyWinRate)
		setRate(out, TrainerWinRate, history.TrainerWinRate)
		setRate(out, BarrierAdvantage, history.BarrierWinRate)
	}

	if days, ok := out[DaysSinceLastRace]; ok {
		out[RestFactor] = RestFactorFor(days)
	}

	// Caller-supplied values are pre-computed features and win over derivation.
	for name, v := range entry.Features {
		out[name] = v
	}

	return Profile{values: out, defaults: d.defaults}, diag, nil
}

// previousRun uses the entry's own last-start fields when they are strictly
// before the race. History, when present, overrides them.
func (d *Deriver) previousRun(entry model.RawEntry, eventAt time.Time, out map[string]float64, diag *Diagnostics) {
	if strings.TrimSpace(entry.PrevDate) == "" {
		return
	}
	prevAt, ok := model.ParseDate(entry.PrevDate)
	diag.Temporal.Checked++
	if !ok || temporal.Check(eventAt, prevAt) != nil {
		diag.Temporal.Excluded++
		diag.PrevDropped = true
		return
	}
	out[DaysSinceLastRace] = daysBetween(prevAt, eventAt)
	if pos, ok := model.CleanPosition(entry.PrevPosition); ok {
		out[PrevPerfIndex] = perfIndex(model.HistoricalRecord{Position: pos}, d.fieldSize)
	}
	if entry.Weight != nil && entry.PrevWeight != nil && *entry.PrevWeight > 0 {
		out[WeightDifferential] = *entry.Weight - *entry.PrevWeight
	}
}

func setIndicator(out map[string]float64, prefix, value string) {
	if value = strings.TrimSpace(value); value != "" {
		out[prefix+value] = 1
	}
}

func setRate(out map[string]float64, name string, rate *float64) {
	if rate != nil {
		out[name] = clamp01(*rate)
	}
}

// String is used in log lines.
func (diag Diagnostics) String() string {
	return fmt.Sprintf("history=%d excluded=%d/%d prev_dropped=%t", diag.HistoryRecords, diag.Temporal.Excluded, diag.Temporal.Checked, diag.PrevDropped)
}
