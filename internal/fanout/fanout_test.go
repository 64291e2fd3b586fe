// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fanout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), 3, items, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

func TestMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	items := make([]int, 20)
	_, err := Map(context.Background(), 4, items, func(_ context.Context, _ int) struct{} {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return struct{}{}
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int64(4))
	assert.Positive(t, peak)
}

func TestMapStartsInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var started []string
	items := []string{"p5", "p4", "p3", "p1"}
	_, err := Map(context.Background(), 1, items, func(_ context.Context, s string) string {
		mu.Lock()
		started = append(started, s)
		mu.Unlock()
		return s
	})
	require.NoError(t, err)
	assert.Equal(t, items, started)
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int64
	got, err := Map(ctx, 1, []int{1, 2, 3}, func(_ context.Context, n int) int {
		atomic.AddInt64(&calls, 1)
		cancel()
		return n
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	assert.Equal(t, []int{1, 0, 0}, got)
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 0, []int(nil), func(_ context.Context, n int) int { return n })
	require.NoError(t, err)
	assert.Empty(t, got)
}
