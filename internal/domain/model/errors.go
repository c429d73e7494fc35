package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrMalformedInput = errors.New("malformed input")
)
