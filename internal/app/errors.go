package service

import "errors"

// Sentinel error kinds for this package.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrNoRegistry    = errors.New("model registry is required")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrNotEntitled   = errors.New("tier is not entitled to any model")
)
