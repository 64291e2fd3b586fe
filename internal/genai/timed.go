// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/research-orchestrator/internal/metrics"
)

// Timed bounds each call to Next and records its outcome. Wrap each
// credential's backend with it, under the Rotator, so a rotated retry gets
// a fresh deadline.
type Timed struct {
	Next    Generator
	Timeout time.Duration
}

// NewTimed wraps next. A zero timeout only records metrics.
func NewTimed(next Generator, timeout time.Duration) *Timed {
	return &Timed{Next: next, Timeout: timeout}
}

// Generate calls Next under the timeout.
func (t *Timed) Generate(ctx context.Context, prompt string) (string, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := t.Next.Generate(ctx, prompt)
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	metrics.GenerationCalls.WithLabelValues(outcome(err)).Inc()
	return out, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrQuotaExhausted):
		return "quota"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
