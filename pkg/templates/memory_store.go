package templates

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryStore(seed ...Template) (*MemoryStore, error) {
	s := &MemoryStore{templates: make(map[string]Template)}
	for _, t := range seed {
		if err := s.Put(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Put creates or replaces a template.
func (s *MemoryStore) Put(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.templates[t.ID]; ok {
		t.CreatedAt = existing.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.Variables = maps.Clone(t.Variables)
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	t.Variables = maps.Clone(t.Variables)
	return t, nil
}

// List returns every template ordered by id.
func (s *MemoryStore) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		t.Variables = maps.Clone(t.Variables)
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Template) int { return strings.Compare(a.ID, b.ID) })
	return out
}
