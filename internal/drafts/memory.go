package drafts

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps drafts in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Add(ctx context.Context, d Draft) (Draft, error) {
	out, err := s.AddMany(ctx, []Draft{d})
	if err != nil {
		return Draft{}, err
	}
	return out[0], nil
}

func (s *MemoryStore) AddMany(_ context.Context, ds []Draft) ([]Draft, error) {
	if err := ValidateBatch(ds); err != nil {
		return nil, err
	}
	ts := now()
	out := make([]Draft, 0, len(ds))
	for _, d := range ds {
		p, err := prepare(d, ts)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range out {
		s.drafts[d.ID] = d.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	if !ok {
		return Draft{}, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Draft, error) {
	s.mu.RLock()
	out := make([]Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, d.Clone())
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Draft) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.drafts[d.ID]
	if !ok {
		return ErrNotFound
	}
	d.CreatedAt = old.CreatedAt
	p, err := prepare(d, now())
	if err != nil {
		return err
	}
	s.drafts[p.ID] = p
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrNotFound
	}
	delete(s.drafts, id)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.drafts)
	return nil
}

func (s *MemoryStore) GetMask(ctx context.Context, id string, c Category) (string, bool, error) {
	if err := checkCategory(c); err != nil {
		return "", false, err
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	v, ok := d.Mask(c)
	return v, ok, nil
}

func (s *MemoryStore) SetMask(_ context.Context, id string, c Category, encoded string) error {
	if err := checkCategory(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return ErrNotFound
	}
	d = d.Clone()
	if encoded == "" {
		delete(d.Masks, c)
	} else {
		d.Masks[c] = encoded
	}
	d.UpdatedAt = now()
	s.drafts[id] = d
	return nil
}

func (s *MemoryStore) Close() error { return nil }
