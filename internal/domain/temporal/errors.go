package temporal

import "errors"

// ErrTemporalViolation marks a historical reference that is not strictly before its event.
var ErrTemporalViolation = errors.New("temporal violation")
