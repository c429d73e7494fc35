// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/internal/domain/ensemble"
	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/internal/domain/signal"
	"github.com/okian/furlong/internal/domain/types"
	"github.com/okian/furlong/pkg/logger"
)

const (
	defaultMaxBatchSize = 100
	defaultTier         = "free"
	defaultConcurrency  = 4
	defaultStreakLength = 4
)

// Registry is what the service needs from the model registry.
type Registry interface {
	engine.Registry
	Entitled(tier string) []string
	Info(tier string) types.ModelCatalog
	Weights() map[string]float64
	Version() string
}

// Service implements the API dependencies for the ranking engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	registry Registry
	history  engine.HistoryProvider
	engine   *engine.Engine

	// Configuration
	threshold    float64
	strategy     string
	weights      map[string]float64
	concurrency  int
	fallback     bool
	streakLength int
	defaultTier  string
	maxBatchSize int
	fieldSize    int

	// State
	started   bool
	startedAt time.Time
	batches   atomic.Int64
	entities  atomic.Int64
	failures  atomic.Int64
	degraded  atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		threshold:    signal.DefaultThreshold,
		strategy:     string(ensemble.Mean),
		concurrency:  defaultConcurrency,
		streakLength: defaultStreakLength,
		defaultTier:  defaultTier,
		maxBatchSize: defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine over the registry.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.registry == nil {
		return ErrNoRegistry
	}

	strategy, err := ensemble.ParseStrategy(s.strategy)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	weights := s.registry.Weights()
	for id, w := range s.weights {
		weights[id] = w
	}

	opts := []engine.Option{
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithFuser(ensemble.NewFuser(ensemble.WithStrategy(strategy), ensemble.WithWeights(weights))),
		engine.WithThreshold(s.threshold),
		engine.WithConcurrency(s.concurrency),
		engine.WithFallback(s.fallback),
		engine.WithStreakLength(s.streakLength),
	}
	if s.history != nil {
		opts = append(opts, engine.WithHistory(s.history))
	}
	if s.fieldSize > 0 {
		opts = append(opts, engine.WithDeriver(features.NewDeriver(features.WithFieldSize(s.fieldSize))))
	}
	eng, err := engine.New(s.registry, opts...)
	if err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.engine = eng
	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "ranking service started",
		logger.String("manifest_version", s.registry.Version()),
		logger.Strings("models", s.registry.IDs()),
		logger.String("strategy", string(strategy)),
		logger.Float64("threshold", s.threshold),
		logger.Bool("fallback", s.fallback),
		logger.Bool("history", s.history != nil),
	)
	return nil
}

// Stop marks the service stopped. In-flight batches finish on their own.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.engine = nil
	s.logger.Info(context.Background(), "ranking service stopped",
		logger.Int("batches", int(s.batches.Load())))
}

// Rank scores a batch and ranks entities within each race, using only the
// models tier is entitled to.
func (s *Service) Rank(ctx context.Context, tier string, entries []model.RawEntry, opts types.BatchOptions) (*types.Result, error) {
	return s.batch(ctx, tier, entries, opts, func(e *engine.Engine, req engine.Request) (*types.Result, error) {
		return e.Rank(ctx, req)
	})
}

// Predict classifies each entity with the probability-style models tier is
// entitled to.
func (s *Service) Predict(ctx context.Context, tier string, entries []model.RawEntry, opts types.BatchOptions) (*types.Result, error) {
	return s.batch(ctx, tier, entries, opts, func(e *engine.Engine, req engine.Request) (*types.Result, error) {
		return e.Predict(ctx, req)
	})
}

func (s *Service) batch(ctx context.Context, tier string, entries []model.RawEntry, opts types.BatchOptions,
	run func(*engine.Engine, engine.Request) (*types.Result, error),
) (*types.Result, error) {
	eng, models, err := s.admit(tier, len(entries))
	if err != nil {
		return nil, err
	}
	if opts.Impute {
		var rep features.ImputeReport
		entries, rep = features.ImputeBatch(entries)
		if rep.Total() > 0 {
			s.logger.Debug(ctx, "imputed missing attributes", logger.Any("imputed", rep))
		}
	}

	s.batches.Add(1)
	res, err := run(eng, engine.Request{Entries: entries, Models: models, Threshold: opts.Threshold})
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	s.entities.Add(int64(len(entries)))
	if res.Degraded() {
		s.degraded.Add(1)
	}
	return res, nil
}

// Streak estimates the chance of one selection winning every race.
func (s *Service) Streak(ctx context.Context, tier string, races []model.RawEntry) (*types.StreakResult, error) {
	eng, models, err := s.admit(tier, len(races))
	if err != nil {
		return nil, err
	}
	s.batches.Add(1)
	res, err := eng.Streak(ctx, engine.StreakRequest{Entries: races, Models: models})
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	return res, nil
}

// Models describes the registry from tier's point of view.
func (s *Service) Models(_ context.Context, tier string) types.ModelCatalog {
	return s.registry.Info(s.resolveTier(tier))
}

// MaxBatchSize returns the per-request entry cap.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// StreakLength returns the number of races a streak request must carry.
func (s *Service) StreakLength() int { return s.streakLength }

// admit checks the service state, the batch size and the tier's entitlement.
func (s *Service) admit(tier string, n int) (*engine.Engine, []string, error) {
	s.mu.RLock()
	eng := s.engine
	s.mu.RUnlock()
	if eng == nil {
		return nil, nil, ErrNotStarted
	}
	if n > s.maxBatchSize {
		return nil, nil, fmt.Errorf("%w: %d entries, limit %d", ErrBatchTooLarge, n, s.maxBatchSize)
	}
	tier = s.resolveTier(tier)
	models := s.registry.Entitled(tier)
	if len(models) == 0 {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotEntitled, tier)
	}
	return eng, models, nil
}

func (s *Service) resolveTier(tier string) string {
	if tier == "" {
		return s.defaultTier
	}
	return tier
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"batches":        s.batches.Load(),
		"entities":       s.entities.Load(),
		"failed_batches": s.failures.Load(),
		"degraded":       s.degraded.Load(),
		"goroutines":     runtime.NumGoroutine(),
		"max_batch_size": s.maxBatchSize,
		"default_tier":   s.defaultTier,
	}
	if s.registry != nil {
		stats["models"] = len(s.registry.IDs())
		stats["manifest_version"] = s.registry.Version()
	}
	if s.engine != nil {
		stats["strategy"] = string(s.engine.Strategy())
		stats["threshold"] = s.engine.Threshold()
		stats["field_size"] = s.engine.FieldSize()
		stats["uptime_seconds"] = time.Since(s.startedAt).Seconds()
	}
	return stats
}
