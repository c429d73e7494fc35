package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coocood/freecache"

	"github.com/okian/furlong/internal/domain/model"
	"github.com/okian/furlong/pkg/logger"
)

const (
	defaultCacheBytes = 16 * 1024 * 1024
	defaultCacheTTL   = 5 * time.Minute
)

// negative marks an entity the inner provider knows nothing about.
var negative = []byte("null")

// Cached keeps recent answers of another provider in a local freecache.
// Errors are never cached.
type Cached struct {
	inner Provider
	cache *freecache.Cache
	ttl   int
	log   logger.Logger
}

// CacheOption applies a configuration option to Cached.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	bytes int
	ttl   time.Duration
	log   logger.Logger
}

// WithCacheBytes sets the cache size. freecache enforces its own minimum.
func WithCacheBytes(n int) CacheOption {
	return func(c *cacheConfig) {
		if n > 0 {
			c.bytes = n
		}
	}
}

// WithTTL sets how long an answer is kept.
func WithTTL(d time.Duration) CacheOption {
	return func(c *cacheConfig) {
		if d >= time.Second {
			c.ttl = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) CacheOption {
	return func(c *cacheConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCached wraps inner.
func NewCached(inner Provider, opts ...CacheOption) *Cached {
	cfg := cacheConfig{bytes: defaultCacheBytes, ttl: defaultCacheTTL, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cached{
		inner: inner,
		cache: freecache.NewCache(cfg.bytes),
		ttl:   int(cfg.ttl / time.Second),
		log:   cfg.log,
	}
}

// History implements Provider. Answers are keyed by entity and event day.
func (c *Cached) History(ctx context.Context, entityID string, asOf time.Time) (*model.HistoricalContext, error) {
	key := []byte(entityID + "|" + asOf.UTC().Format(time.DateOnly))
	if raw, err := c.cache.Get(key); err == nil {
		return decode(raw)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		c.log.Warn(ctx, "history cache read failed", logger.String("entity", entityID), logger.Error(err))
	}

	h, err := c.inner.History(ctx, entityID, asOf)
	if err != nil {
		return nil, err
	}
	raw := negative
	if h != nil {
		if raw, err = json.Marshal(h); err != nil {
			return h, nil
		}
	}
	if err := c.cache.Set(key, raw, c.ttl); err != nil {
		c.log.Debug(ctx, "history not cached", logger.String("entity", entityID), logger.Error(err))
	}
	return h, nil
}

// HitRate returns the cache hit ratio.
func (c *Cached) HitRate() float64 { return c.cache.HitRate() }

// EntryCount returns the number of cached answers.
func (c *Cached) EntryCount() int64 { return c.cache.EntryCount() }

func decode(raw []byte) (*model.HistoricalContext, error) {
	var h *model.HistoricalContext
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	return h, nil
}
