package service

import (
	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRegistry sets the model registry. Required.
func WithRegistry(r Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithHistory attaches a historical context provider.
func WithHistory(p engine.HistoryProvider) Option {
	return func(s *Service) {
		s.history = p
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithThreshold sets the default confidence threshold.
func WithThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithFusionStrategy sets the ensemble strategy by name.
func WithFusionStrategy(name string) Option {
	return func(s *Service) {
		s.strategy = name
	}
}

// WithModelWeights overrides registry weights for the weighted strategy.
func WithModelWeights(w map[string]float64) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithConcurrency bounds per-batch fan-out.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFallback enables the labeled placeholder ranking.
func WithFallback(enabled bool) Option {
	return func(s *Service) {
		s.fallback = enabled
	}
}

// WithStreakLength sets how many races a streak request carries.
func WithStreakLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streakLength = n
		}
	}
}

// WithDefaultTier sets the tier used when a caller sends none.
func WithDefaultTier(tier string) Option {
	return func(s *Service) {
		if tier != "" {
			s.defaultTier = tier
		}
	}
}

// WithFieldSize sets the field size assumed for past runs that do not record
// one.
func WithFieldSize(n int) Option {
	return func(s *Service) {
		if n > 1 {
			s.fieldSize = n
		}
	}
}

// WithMaxBatchSize caps entries per request.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}
