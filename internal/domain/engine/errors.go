package engine

import "errors"

// Sentinel error kinds for this package.
var (
	ErrEmptyBatch         = errors.New("empty batch")
	ErrUnknownModel       = errors.New("unknown model")
	ErrNoModels           = errors.New("no models selected")
	ErrStreakLength       = errors.New("wrong number of streak races")
	ErrNoProbabilityModel = errors.New("no probability-style model available")
)

// Entity error kinds reported on results.
const (
	KindMalformedInput = "malformed_input"
	KindNoScore        = "no_score"
	KindSchemaMismatch = "schema_mismatch"
	KindScorerError    = "scorer_error"
	KindRemote         = "remote_error"
	KindCancelled      = "cancelled"
)
