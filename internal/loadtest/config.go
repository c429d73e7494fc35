// Package loadtest drives a running server with synthetic race cards and
// checks every ranked response for structural consistency.
package loadtest

import (
	"errors"
	"time"

	"github.com/okian/furlong/internal/domain/model"
)

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid load test config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrInconsistent  = errors.New("inconsistent ranking")
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Races          int           // Number of race cards to generate
	RunnersPerRace int           // Entries per race card
	RacesPerBatch  int           // Race cards per request
	Workers        int           // Concurrent submitters
	Timeout        time.Duration // Per-request timeout
	Tier           string        // X-Tier header value
	Seed           uint64        // Generator seed; zero picks one from the clock
	OutputFile     string        // Where to save generated cards; empty skips saving
	Verbose        bool
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidConfig, errors.New("base url is required"))
	case c.Races <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("races must be positive"))
	case c.RunnersPerRace < 2:
		return errors.Join(ErrInvalidConfig, errors.New("a race needs at least two runners"))
	case c.RacesPerBatch <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("races per batch must be positive"))
	case c.Workers <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	}
	return nil
}

// Card is one generated race.
type Card struct {
	RaceID  string           `json:"race_id"`
	Entries []model.RawEntry `json:"entries"`
}

// Stats holds run statistics.
type Stats struct {
	RacesGenerated   int
	BatchesSubmitted int
	BatchesOK        int
	BatchesDegraded  int
	BatchesFailed    int
	Violations       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
