// Package config defines service configuration and its defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/furlong/internal/domain/ensemble"
)

// History backends.
const (
	HistoryNone   = "none"
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ManifestPath points at the model manifest.
	ManifestPath string `koanf:"manifest_path"`

	// MaxBatchSize caps entries per request.
	MaxBatchSize int `koanf:"max_batch_size"`

	// RequestBodyLimit caps request bodies in bytes.
	RequestBodyLimit int64 `koanf:"request_body_limit"`

	// ConfidenceThreshold is the default signal threshold T.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`

	// FusionStrategy is mean, minmax or weighted.
	FusionStrategy string `koanf:"fusion_strategy"`

	// ModelWeights override manifest weights for the weighted strategy.
	ModelWeights map[string]float64 `koanf:"model_weights"`

	// ScorerConcurrency bounds concurrent scorers and history lookups per batch.
	ScorerConcurrency int `koanf:"scorer_concurrency"`

	// FallbackEnabled turns on the labeled placeholder ranking.
	FallbackEnabled bool `koanf:"fallback_enabled"`

	// DefaultTier applies when a request carries no X-Tier header.
	DefaultTier string `koanf:"default_tier"`

	// StreakLength is the number of races a streak request must carry.
	StreakLength int `koanf:"streak_length"`

	// DefaultFieldSize is assumed for past runs whose field size is unknown.
	DefaultFieldSize int `koanf:"default_field_size"`

	// HistoryBackend is none, memory or redis.
	HistoryBackend string `koanf:"history_backend"`

	// HistoryFile seeds the memory backend.
	HistoryFile string `koanf:"history_file"`

	RedisAddr      string `koanf:"redis_addr"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// HistoryCacheBytes sizes the local history cache; 0 disables it.
	HistoryCacheBytes int `koanf:"history_cache_bytes"`

	// HistoryCacheTTLSeconds is how long cached history stays valid.
	HistoryCacheTTLSeconds int `koanf:"history_cache_ttl_seconds"`

	// ShutdownTimeoutSeconds bounds graceful shutdown.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		ManifestPath:           "models/manifest.yaml",
		MaxBatchSize:           100,
		RequestBodyLimit:       1 << 20,
		ConfidenceThreshold:    0.65,
		FusionStrategy:         string(ensemble.Mean),
		ScorerConcurrency:      4,
		DefaultTier:            "free",
		StreakLength:           4,
		DefaultFieldSize:       15,
		HistoryBackend:         HistoryNone,
		RedisAddr:              "localhost:6379",
		RedisKeyPrefix:         "furlong:history:",
		HistoryCacheBytes:      16 * 1024 * 1024,
		HistoryCacheTTLSeconds: 300,
		ShutdownTimeoutSeconds: 30,
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}
	if strings.TrimSpace(c.Addr) == "" {
		bad("addr must not be empty")
	}
	if strings.TrimSpace(c.ManifestPath) == "" {
		bad("manifest_path must not be empty")
	}
	if c.MaxBatchSize <= 0 {
		bad("max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	if c.RequestBodyLimit <= 0 {
		bad("request_body_limit must be positive, got %d", c.RequestBodyLimit)
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		bad("confidence_threshold must be in (0, 1], got %v", c.ConfidenceThreshold)
	}
	if _, err := ensemble.ParseStrategy(c.FusionStrategy); err != nil {
		bad("fusion_strategy: %v", err)
	}
	for id, w := range c.ModelWeights {
		if w < 0 {
			bad("model_weights[%s] must not be negative, got %v", id, w)
		}
	}
	if c.ScorerConcurrency <= 0 {
		bad("scorer_concurrency must be positive, got %d", c.ScorerConcurrency)
	}
	if c.StreakLength <= 0 {
		bad("streak_length must be positive, got %d", c.StreakLength)
	}
	if c.DefaultFieldSize < 2 {
		bad("default_field_size must be at least 2, got %d", c.DefaultFieldSize)
	}
	switch c.HistoryBackend {
	case HistoryNone, "":
	case HistoryMemory:
	case HistoryRedis:
		if c.RedisAddr == "" {
			bad("redis_addr is required for the redis history backend")
		}
	default:
		bad("history_backend must be none, memory or redis, got %q", c.HistoryBackend)
	}
	if c.HistoryCacheBytes < 0 {
		bad("history_cache_bytes must not be negative, got %d", c.HistoryCacheBytes)
	}
	if c.HistoryCacheTTLSeconds < 0 {
		bad("history_cache_ttl_seconds must not be negative, got %d", c.HistoryCacheTTLSeconds)
	}
	return errors.Join(errs...)
}
