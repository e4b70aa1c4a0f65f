package catalog

import (
	"context"
	"sort"
	"sync"
)

type MemStore struct {
	mu sync.RWMutex
	m  map[int64]Product
}

func NewMemStore(seed ...Product) *MemStore {
	s := &MemStore{m: make(map[int64]Product, len(seed))}
	for _, p := range seed {
		s.m[p.ID] = p
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

// Put inserts or replaces a product.
func (s *MemStore) Put(p Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = p
}

func (s *MemStore) ListSortedByID(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	return p, ok, nil
}
