package signal

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidProbability = errors.New("probability outside [0,1]")
	ErrEmptyStreak        = errors.New("streak needs at least one race")
)
