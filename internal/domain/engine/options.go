package engine

import (
	"github.com/okian/furlong/internal/domain/ensemble"
	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/pkg/logger"
)

const (
	defaultConcurrency  = 4
	defaultStreakLength = 4
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDeriver sets the feature deriver.
func WithDeriver(d *features.Deriver) Option {
	return func(e *Engine) {
		if d != nil {
			e.deriver = d
		}
	}
}

// WithFuser sets the ensemble fuser.
func WithFuser(f *ensemble.Fuser) Option {
	return func(e *Engine) {
		if f != nil {
			e.fuser = f
		}
	}
}

// WithThreshold sets the default confidence threshold used when a request
// does not carry one.
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithHistory attaches a historical context provider.
func WithHistory(p HistoryProvider) Option {
	return func(e *Engine) {
		e.history = p
	}
}

// WithConcurrency bounds how many scorers run at once for one batch.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithFallback enables the labeled placeholder ranking when no scorer succeeds.
func WithFallback(enabled bool) Option {
	return func(e *Engine) {
		e.fallback = enabled
	}
}

// WithStreakLength sets how many races a streak request must carry.
func WithStreakLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.streakLength = n
		}
	}
}
