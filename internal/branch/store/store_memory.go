package store

import (
	"context"
	"sort"
	"sync"

	"himpana/internal/branch"
	"himpana/pkg/sentinel"
)

// InMemoryStore holds branch reference data for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	branches  map[int64]branch.Branch
	provinces map[int64]branch.Province
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		branches:  make(map[int64]branch.Branch),
		provinces: make(map[int64]branch.Province),
	}
}

// Seed registers reference rows; reference data is created out of band in
// production, so this is the in-memory equivalent of a fixture load.
func (s *InMemoryStore) Seed(provinces []branch.Province, branches []branch.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range provinces {
		s.provinces[p.ID] = p
	}
	for _, b := range branches {
		s.branches[b.ID] = b
	}
}

func (s *InMemoryStore) Find(_ context.Context, id int64) (*branch.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.branches[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

func (s *InMemoryStore) ListProvinces(_ context.Context) ([]branch.Province, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	provinces := make([]branch.Province, 0, len(s.provinces))
	for _, p := range s.provinces {
		provinces = append(provinces, p)
	}
	sort.Slice(provinces, func(i, j int) bool { return provinces[i].Name < provinces[j].Name })
	return provinces, nil
}

func (s *InMemoryStore) ListByProvince(_ context.Context, provinceID int64) ([]branch.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var branches []branch.Branch
	for _, b := range s.branches {
		if b.ProvinceID == provinceID {
			branches = append(branches, b)
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}
