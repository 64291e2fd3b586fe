// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/metrics"
)

// Factory builds the Generator for one credential.
type Factory func(apiKey string) Generator

// Rotator spreads calls over an ordered credential list. On
// ErrQuotaExhausted it switches to the next credential and retries the same
// prompt, once per rotation. The active credential is sticky across calls.
type Rotator struct {
	backends []Generator
	logger   *zap.Logger

	mu     sync.Mutex
	active int
}

// NewRotator builds one backend per key. At least one key is required.
func NewRotator(keys []string, factory Factory, logger *zap.Logger) (*Rotator, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no generation credentials configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Rotator{logger: logger}
	for _, k := range keys {
		r.backends = append(r.backends, factory(k))
	}
	return r, nil
}

// Active returns the index of the credential currently in use.
func (r *Rotator) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Generate calls the active backend, rotating on quota exhaustion until a
// call succeeds or every credential has been tried.
func (r *Rotator) Generate(ctx context.Context, prompt string) (string, error) {
	idx := r.Active()
	var lastErr error
	for tried := 0; tried < len(r.backends); tried++ {
		out, err := r.backends[idx].Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrQuotaExhausted) {
			return "", err
		}
		lastErr = err
		idx = r.rotateFrom(idx)
	}
	r.logger.Error("every generation credential is exhausted",
		zap.Int("credentials", len(r.backends)), zap.Error(lastErr))
	return "", fmt.Errorf("%w: %w", ErrCredentialsExhausted, lastErr)
}

// rotateFrom moves the shared position past failed unless another caller
// already did, and returns the index this call tries next.
func (r *Rotator) rotateFrom(failed int) int {
	next := (failed + 1) % len(r.backends)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == failed {
		r.active = next
		metrics.CredentialRotations.Inc()
		r.logger.Warn("generation quota exhausted, rotating credential",
			zap.Int("from", failed), zap.Int("to", next))
	}
	return next
}
