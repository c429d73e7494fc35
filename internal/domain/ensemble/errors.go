package ensemble

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNoScoresAvailable = errors.New("no scores available")
	ErrInvalidInput      = errors.New("invalid fusion input")
	ErrUnknownStrategy   = errors.New("unknown fusion strategy")
)
