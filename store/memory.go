package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lewis121025/Generate-Agent/creative"
	"github.com/Lewis121025/Generate-Agent/general"
)

// MemoryProjects is a mutex-guarded map of projects. Entities are cloned on
// the way in and out so callers never alias stored state.
type MemoryProjects struct {
	mu       sync.RWMutex
	projects map[string]*creative.Project
}

// NewMemoryProjects returns an empty project repository.
func NewMemoryProjects() *MemoryProjects {
	return &MemoryProjects{projects: make(map[string]*creative.Project)}
}

// Create implements creative.Repository.
func (m *MemoryProjects) Create(ctx context.Context, p *creative.Project) (*creative.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.projects[p.ID]; exists {
		return nil, fmt.Errorf("store: project %s already exists", p.ID)
	}
	m.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

// Get implements creative.Repository.
func (m *MemoryProjects) Get(ctx context.Context, id string) (*creative.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
	}
	return p.Clone(), nil
}

// Upsert implements creative.Repository.
func (m *MemoryProjects) Upsert(ctx context.Context, p *creative.Project) (*creative.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p.Clone()
	return p.Clone(), nil
}

// ListForTenant implements creative.Repository. Results are ordered by
// creation time.
func (m *MemoryProjects) ListForTenant(ctx context.Context, tenantID string) ([]*creative.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*creative.Project
	for _, p := range m.projects {
		if p.TenantID == tenantID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ creative.Repository = (*MemoryProjects)(nil)

// MemorySessions is the in-memory session repository.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]*general.Session
}

// NewMemorySessions returns an empty session repository.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]*general.Session)}
}

// Create implements general.Repository.
func (m *MemorySessions) Create(ctx context.Context, s *general.Session) (*general.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return nil, fmt.Errorf("store: session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return s.Clone(), nil
}

// Get implements general.Repository.
func (m *MemorySessions) Get(ctx context.Context, id string) (*general.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Upsert implements general.Repository.
func (m *MemorySessions) Upsert(ctx context.Context, s *general.Session) (*general.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return s.Clone(), nil
}

// ListForTenant implements general.Repository.
func (m *MemorySessions) ListForTenant(ctx context.Context, tenantID string) ([]*general.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*general.Session
	for _, s := range m.sessions {
		if s.TenantID == tenantID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ general.Repository = (*MemorySessions)(nil)
