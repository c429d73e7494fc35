package registry

import "errors"

// Sentinel error kinds for this package.
var (
	ErrLoad         = errors.New("model registry load failed")
	ErrDuplicateID  = errors.New("duplicate model id")
	ErrInvalidRule  = errors.New("invalid entitlement rule")
	ErrUnknownModel = errors.New("unknown model")
)
