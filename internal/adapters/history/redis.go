package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/furlong/internal/domain/model"
)

// DefaultKeyPrefix namespaces history keys.
const DefaultKeyPrefix = "furlong:history:"

// Getter is the slice of the Redis client the provider needs.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Redis reads JSON-encoded historical contexts stored under prefix + entity id.
type Redis struct {
	client Getter
	prefix string
}

// RedisOption applies a configuration option to the Redis provider.
type RedisOption func(*Redis)

// WithKeyPrefix sets the key prefix.
func WithKeyPrefix(p string) RedisOption {
	return func(r *Redis) {
		if p != "" {
			r.prefix = p
		}
	}
}

// NewRedis creates a provider over client.
func NewRedis(client Getter, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return client, nil
}

// Key returns the Redis key of an entity.
func (r *Redis) Key(entityID string) string { return r.prefix + entityID }

// History implements Provider.
func (r *Redis) History(ctx context.Context, entityID string, _ time.Time) (*model.HistoricalContext, error) {
	raw, err := r.client.Get(ctx, r.Key(entityID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.Key(entityID), err)
	}
	var h model.HistoricalContext
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, entityID, err)
	}
	return &h, nil
}
