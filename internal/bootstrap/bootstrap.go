// Package bootstrap assembles a started ranking service from configuration.
// The server and the CLI share it so both rank with the same models, history
// and fusion settings.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/furlong/internal/adapters/history"
	"github.com/okian/furlong/internal/adapters/registry"
	service "github.com/okian/furlong/internal/app"
	"github.com/okian/furlong/internal/config"
	"github.com/okian/furlong/internal/domain/engine"
	"github.com/okian/furlong/pkg/logger"
)

// ErrHistory wraps failures to open the configured history backend.
var ErrHistory = errors.New("history backend unavailable")

// History opens the configured history backend. The returned close function
// is never nil. A nil provider means history is disabled.
func History(ctx context.Context, cfg *config.Config, log logger.Logger) (engine.HistoryProvider, func() error, error) {
	noop := func() error { return nil }

	var (
		inner   history.Provider
		closeFn = noop
	)
	switch cfg.HistoryBackend {
	case config.HistoryMemory:
		if cfg.HistoryFile == "" {
			inner = history.NewInMemory(nil)
			break
		}
		p, err := history.LoadFile(cfg.HistoryFile)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %w", ErrHistory, err)
		}
		log.Info(ctx, "history loaded from file",
			logger.String("path", cfg.HistoryFile), logger.Int("entities", p.Len()))
		inner = p
	case config.HistoryRedis:
		client, err := history.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, noop, fmt.Errorf("%w: %w", ErrHistory, err)
		}
		log.Info(ctx, "history backed by redis",
			logger.String("addr", cfg.RedisAddr), logger.Int("db", cfg.RedisDB))
		inner = history.NewRedis(client, history.WithKeyPrefix(cfg.RedisKeyPrefix))
		closeFn = client.Close
	default:
		return nil, noop, nil
	}

	if cfg.HistoryCacheBytes <= 0 {
		return inner, closeFn, nil
	}
	return history.NewCached(inner,
		history.WithCacheBytes(cfg.HistoryCacheBytes),
		history.WithTTL(time.Duration(cfg.HistoryCacheTTLSeconds)*time.Second),
		history.WithLogger(log.Named("history")),
	), closeFn, nil
}

// Service loads the manifest, opens history and starts a service configured
// from cfg. The returned close function stops the service and releases the
// history backend.
func Service(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	reg, err := registry.Load(ctx, cfg.ManifestPath, registry.WithLogger(log.Named("registry")))
	if err != nil {
		return nil, nil, err
	}

	hist, closeHistory, err := History(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	opts := []service.Option{
		service.WithRegistry(reg),
		service.WithLogger(log.Named("service")),
		service.WithThreshold(cfg.ConfidenceThreshold),
		service.WithFusionStrategy(cfg.FusionStrategy),
		service.WithModelWeights(cfg.ModelWeights),
		service.WithConcurrency(cfg.ScorerConcurrency),
		service.WithFallback(cfg.FallbackEnabled),
		service.WithStreakLength(cfg.StreakLength),
		service.WithDefaultTier(cfg.DefaultTier),
		service.WithMaxBatchSize(cfg.MaxBatchSize),
		service.WithFieldSize(cfg.DefaultFieldSize),
	}
	if hist != nil {
		opts = append(opts, service.WithHistory(hist))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = closeHistory()
		return nil, nil, err
	}
	return svc, func() {
		svc.Stop()
		if err := closeHistory(); err != nil {
			log.Warn(context.Background(), "closing history backend failed", logger.Error(err))
		}
	}, nil
}
