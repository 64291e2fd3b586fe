// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit bounds outbound call frequency with a sliding window.
// One Limiter is shared by every agent in a process; it is the only guard
// against exceeding the generation and search services' quotas.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/research-orchestrator/internal/metrics"
)

// Limiter allows at most maxCalls acquisitions in any trailing period.
type Limiter struct {
	maxCalls int
	period   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	calls []time.Time // oldest first
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source and the sleeper. Tests use it to run
// the window on a fake clock.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// New returns a limiter for maxCalls per period. Non-positive arguments are
// raised to 1 call and 1 second.
func New(maxCalls int, period time.Duration, opts ...Option) *Limiter {
	if maxCalls <= 0 {
		maxCalls = 1
	}
	if period <= 0 {
		period = time.Second
	}
	l := &Limiter{
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Acquire blocks until issuing one more call keeps the trailing window at
// or below maxCalls, then records the call. It returns ctx.Err() without
// recording anything if ctx ends first.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := l.now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			metrics.RateLimiterWait.Observe(now.Sub(start).Seconds())
			return nil
		}
		wait := l.calls[0].Add(l.period).Sub(now)
		l.mu.Unlock()

		// Another goroutine may take the freed slot first; loop and re-check.
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Len reports the number of calls in the current window.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.calls)
}

// prune drops timestamps at or before now-period. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.period)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
