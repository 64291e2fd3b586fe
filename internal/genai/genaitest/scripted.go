// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package genaitest provides a scripted Generator for tests. Replies are
// chosen by matching a substring of the prompt, so tests stay independent
// of the order in which concurrent agents issue their calls.
package genaitest

import (
	"context"
	"strings"
	"sync"
)

type rule struct {
	contains string
	replies  []string
	err      error
	served   int
}

// Scripted answers prompts from a list of rules. The first rule whose
// substring occurs in the prompt wins. Safe for concurrent use.
type Scripted struct {
	mu      sync.Mutex
	rules   []*rule
	def     string
	prompts []string
}

// New returns a Scripted generator whose unmatched prompts get def.
func New(def string) *Scripted {
	return &Scripted{def: def}
}

// On answers prompts containing substr. With several replies, successive
// matching calls get successive replies and the last one repeats.
func (s *Scripted) On(substr string, replies ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{contains: substr, replies: replies})
	return s
}

// Fail returns err for prompts containing substr.
func (s *Scripted) Fail(substr string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{contains: substr, err: err})
	return s
}

// Generate implements genai.Generator.
func (s *Scripted) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, r := range s.rules {
		if !strings.Contains(prompt, r.contains) {
			continue
		}
		if r.err != nil {
			return "", r.err
		}
		i := r.served
		if i >= len(r.replies) {
			i = len(r.replies) - 1
		}
		r.served++
		if i < 0 {
			return "", nil
		}
		return r.replies[i], nil
	}
	return s.def, nil
}

// Prompts returns every prompt received, in arrival order.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Count returns how many prompts contained substr.
func (s *Scripted) Count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
