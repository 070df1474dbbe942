package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"findsub/marketplace-service/internal/user"
)

const cacheKeyPrefix = "reputation:"

// RedisCache stores reputations as JSON strings with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache returns a RedisCache.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*user.Reputation, error) {
	raw, err := c.rdb.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rep user.Reputation
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("decode cached reputation: %w", err)
	}
	return &rep, nil
}

func (c *RedisCache) Set(ctx context.Context, rep user.Reputation) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode reputation: %w", err)
	}
	if err := c.rdb.Set(ctx, cacheKeyPrefix+rep.UserID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
