// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry owns the Source records discovered during one research
// run. Agents keep only the id Register returns and look records up by id.
// All methods are safe for concurrent use.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// Registry maps source ids to Source records. Sources are never removed.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*types.Source
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sources: make(map[string]*types.Source)}
}

// Register stores a copy of src under a fresh UUID and returns the id. Any
// ID already set on src is replaced.
func (r *Registry) Register(src types.Source) string {
	id := uuid.NewString()
	src.ID = id
	src.UsedSections = append([]string(nil), src.UsedSections...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = &src
	r.order = append(r.order, id)
	return id
}

// Get returns a copy of the source with id.
func (r *Registry) Get(id string) (types.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return types.Source{}, false
	}
	return clone(s), true
}

// Resolve returns copies of the sources named by ids in first-seen order.
// Unknown and repeated ids are skipped.
func (r *Registry) Resolve(ids []string) []types.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(ids))
	var out []types.Source
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := r.sources[id]; ok {
			out = append(out, clone(s))
		}
	}
	return out
}

// MarkUsed records that the source was cited in section. It reports
// whether id is known.
func (r *Registry) MarkUsed(id, section string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if ok {
		s.AddUsedSection(section)
	}
	return ok
}

// SetVerification records status on the source unless a stronger verdict
// is already stored. It reports whether id is known.
func (r *Registry) SetVerification(id string, status types.VerificationStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return false
	}
	if status.Rank() > s.VerificationStatus.Rank() {
		s.VerificationStatus = status
	}
	return true
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns copies of every source in registration order.
func (r *Registry) All() []types.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.sources[id]))
	}
	return out
}

func clone(s *types.Source) types.Source {
	c := *s
	c.UsedSections = append([]string(nil), s.UsedSections...)
	return c
}
