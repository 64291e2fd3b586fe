// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

func sampleResult() *types.Result {
	doc := types.NewTemplate()
	doc.SetString(types.SectionExecutiveSummary, "abstract", "Solar adoption doubled.")
	return &types.Result{
		Report: &types.Report{
			ContentPlan: "Solar",
			Synthesis:   doc,
			Critique:    types.Critique{Strengths: []string{"clear"}, OverallQuality: 8.5},
			Sources:     []types.Source{{ID: "s1", URL: "https://a.example", Title: "A", UsedSections: []string{}}},
		},
		Markdown: "# Executive Summary\n",
	}
}

func TestTopicKey(t *testing.T) {
	assert.Equal(t, TopicKey("solar power"), TopicKey("  solar power\n"))
	assert.NotEqual(t, TopicKey("solar power"), TopicKey("Solar power"))
	assert.Len(t, TopicKey(""), 64)
}

func TestSQLiteCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "cache.db"), time.Hour)
	require.NoError(t, err)
	defer c.Close()

	key := TopicKey("Solar")
	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, key, sampleResult()))
	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Solar", got.Report.ContentPlan)
	assert.Equal(t, 8.5, got.Report.Critique.OverallQuality)
	assert.Equal(t, "Solar adoption doubled.", got.Report.Synthesis.String(types.SectionExecutiveSummary, "abstract"))
	assert.Equal(t, "# Executive Summary\n", got.Markdown)

	// Put replaces.
	updated := sampleResult()
	updated.Markdown = "v2"
	require.NoError(t, c.Put(ctx, key, updated))
	got, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", got.Markdown)
}

func TestSQLiteCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	require.NoError(t, err)
	defer c.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Put(ctx, "k", sampleResult()))

	now = now.Add(59 * time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "entries older than the TTL are misses")
}

func TestSQLiteCacheReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := OpenSQLite(path, 0)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", sampleResult()))
	require.NoError(t, c.Close())

	c, err = OpenSQLite(path, 0)
	require.NoError(t, err)
	defer c.Close()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	defer c.Close()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", sampleResult()))
	assert.True(t, mr.Exists(RedisKeyPrefix+"k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Solar", got.Report.ContentPlan)

	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set(RedisKeyPrefix+"k", "not json"))
	c := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	defer c.Close()

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	tests := []struct {
		name    string
		cfg     types.CacheConfig
		want    any
		wantErr bool
	}{
		{name: "default is sqlite", cfg: types.CacheConfig{Path: filepath.Join(t.TempDir(), "c.db")}, want: &SQLiteCache{}},
		{name: "redis", cfg: types.CacheConfig{Backend: types.CacheRedis, RedisAddr: mr.Addr()}, want: &RedisCache{}},
		{name: "redis without addr", cfg: types.CacheConfig{Backend: types.CacheRedis}, wantErr: true},
		{name: "none", cfg: types.CacheConfig{Backend: types.CacheNone}, want: Nop{}},
		{name: "unknown", cfg: types.CacheConfig{Backend: "memcached"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Open(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer c.Close()
			assert.IsType(t, tt.want, c)
		})
	}
}
