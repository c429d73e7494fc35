// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawEntry is one competitor's raw attributes for one race, as handed over by
// ingestion. Optional numerics are pointers so "absent" differs from zero.
type RawEntry struct {
	EntityID       string             `json:"horse_name"`
	GroupID        string             `json:"race_id,omitempty"`
	Track          string             `json:"track,omitempty"`
	Date           string             `json:"date,omitempty"`
	RaceType       string             `json:"race_type,omitempty"`
	Distance       Measure            `json:"distance,omitempty"`
	Details        string             `json:"details,omitempty"`
	Stakes         string             `json:"stakes,omitempty"`
	TrackCondition string             `json:"track_condition,omitempty"`
	Barrier        *float64           `json:"barrier,omitempty"`
	Weight         *float64           `json:"weight,omitempty"`
	Age            *float64           `json:"age,omitempty"`
	Jockey         string             `json:"jockey,omitempty"`
	Trainer        string             `json:"trainer,omitempty"`
	PrevDate       string             `json:"prev_race_date,omitempty"`
	PrevPosition   string             `json:"prev_position,omitempty"`
	PrevWeight     *float64           `json:"prev_weight,omitempty"`
	Features       map[string]float64 `json:"features,omitempty"`
}

// Validate checks the identifying attributes. A group id is only required when
// the caller asked for a within-group ranking.
func (e RawEntry) Validate(requireGroup bool) error {
	switch {
	case strings.TrimSpace(e.EntityID) == "":
		return fmt.Errorf("%w: missing horse_name", ErrMalformedInput)
	case requireGroup && strings.TrimSpace(e.GroupID) == "":
		return fmt.Errorf("%w: missing race_id for %q", ErrMalformedInput, e.EntityID)
	}
	return nil
}

// Measure is a numeric attribute that may arrive either as a JSON number or as
// free text with a unit suffix ("1400m").
type Measure string

// UnmarshalJSON accepts numbers, strings and null.
func (m *Measure) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*m = ""
		return nil
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*m = Measure(str)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("measure: %w", err)
	}
	*m = Measure(s)
	return nil
}

// Float returns a pointer to v, for building entries in code.
func Float(v float64) *float64 { return &v }
