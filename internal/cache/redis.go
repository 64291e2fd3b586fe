// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// RedisKeyPrefix namespaces report keys.
const RedisKeyPrefix = "research:report:"

// RedisCache keeps results as JSON strings with an expiry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. ttl <= 0 stores without expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached result for key.
func (c *RedisCache) Get(ctx context.Context, key string) (*types.Result, bool, error) {
	raw, err := c.client.Get(ctx, RedisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached report: %w", err)
	}
	var res types.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("decoding cached report: %w", err)
	}
	return &res, true, nil
}

// Put stores res under key.
func (c *RedisCache) Put(ctx context.Context, key string, res *types.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := c.client.Set(ctx, RedisKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached report: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
