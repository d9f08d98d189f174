// Package media stores versioned references to rendered assets (shot clips,
// narration audio, preview cuts) keyed by owning entity and name. References
// are versioned: saving under an existing name appends, never overwrites, so
// render history survives re-renders.
package media

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no reference exists for the key.
var ErrNotFound = errors.New("media: not found")

// Ref points at one stored asset version.
type Ref struct {
	URL      string         `json:"url"`
	Kind     string         `json:"kind"` // "video", "audio", "image"
	Version  int            `json:"version"`
	Metadata map[string]any `json:"metadata,omitempty"`
	SavedAt  time.Time      `json:"saved_at"`
}

// Store is an in-process versioned reference store. Data is copied on save
// and retrieval to avoid aliasing internal state.
//
// Layout: entityID -> name -> versions (ascending).
type Store struct {
	mu   sync.RWMutex
	refs map[string]map[string][]Ref
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{refs: make(map[string]map[string][]Ref)}
}

// Save appends a new version for (entityID, name) and returns it.
func (s *Store) Save(entityID, name string, ref Ref) Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[entityID]; !ok {
		s.refs[entityID] = make(map[string][]Ref)
	}
	versions := s.refs[entityID][name]
	ref.Version = len(versions) + 1
	ref.SavedAt = time.Now()
	ref.Metadata = copyMeta(ref.Metadata)
	s.refs[entityID][name] = append(versions, ref)
	return ref
}

// Latest returns the newest version for (entityID, name).
func (s *Store) Latest(entityID, name string) (Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.refs[entityID][name]
	if !ok || len(versions) == 0 {
		return Ref{}, ErrNotFound
	}
	ref := versions[len(versions)-1]
	ref.Metadata = copyMeta(ref.Metadata)
	return ref, nil
}

// Versions returns all versions for (entityID, name), oldest first.
func (s *Store) Versions(entityID, name string) ([]Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.refs[entityID][name]
	if !ok || len(versions) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Ref, len(versions))
	for i, v := range versions {
		v.Metadata = copyMeta(v.Metadata)
		out[i] = v
	}
	return out, nil
}

// Names lists the asset names stored for the entity.
func (s *Store) Names(entityID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.refs[entityID]
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
