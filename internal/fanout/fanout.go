// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fanout runs one function over a batch of items with bounded
// concurrency. Items are started in slice order; results are returned in
// the same order regardless of completion order.
package fanout

import (
	"context"
	"sync"
)

// Map calls fn for every item with at most limit calls in flight and
// returns the results by index. A limit below 1 means one at a time.
//
// When ctx is cancelled no further items are started; Map waits for the
// running calls and returns ctx.Err(). Results of items that never started
// are zero values.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(context.Context, T) R) ([]R, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]R, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	var err error
submit:
	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			err = ctx.Err()
			break submit
		}
		if err = ctx.Err(); err != nil {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(ctx, item)
		}(i, item)
	}
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	return results, err
}
