// Package cache fronts weight reads with Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// DefaultTTL bounds how long a stale entry can outlive a write from another
// replica.
const DefaultTTL = 10 * time.Minute

type WeightCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewWeightCache(client *redis.Client, ttl time.Duration) *WeightCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &WeightCache{client: client, ttl: ttl}
}

func weightsKey(userID string) string {
	return fmt.Sprintf("vigil:weights:%s", userID)
}

// Get returns nil on a miss.
func (c *WeightCache) Get(ctx context.Context, userID string) (risk.Weights, error) {
	data, err := c.client.Get(ctx, weightsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var w risk.Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode cached weights: %w", err)
	}
	return w, nil
}

func (c *WeightCache) Set(ctx context.Context, userID string, w risk.Weights) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, weightsKey(userID), data, c.ttl).Err()
}

func (c *WeightCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, weightsKey(userID)).Err()
}
