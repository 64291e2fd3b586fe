// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores finished research results keyed by a hash of the
// topic, so a repeated topic skips the pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Cache is a topic-hash keyed result store. Get reports a miss with
// ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (*types.Result, bool, error)
	Put(ctx context.Context, key string, res *types.Result) error
	Close() error
}

// TopicKey is the cache key for topic: the hex SHA-256 of the trimmed
// text.
func TopicKey(topic string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(topic)))
	return hex.EncodeToString(sum[:])
}

// Open returns the cache cfg selects. An empty backend means SQLite.
func Open(cfg types.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case types.CacheSQLite, "":
		return OpenSQLite(cfg.Path, cfg.TTL)
	case types.CacheRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
		return NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.TTL), nil
	case types.CacheNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Nop is a cache that never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (*types.Result, bool, error) { return nil, false, nil }
func (Nop) Put(context.Context, string, *types.Result) error         { return nil }
func (Nop) Close() error                                             { return nil }
