package features

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidSchema = errors.New("invalid feature schema")
)
