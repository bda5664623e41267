package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"himpana/internal/member"
	"himpana/pkg/sentinel"
)

// InMemoryStore mirrors the relational store's uniqueness semantics so the
// allocator and orchestrator can be exercised without a database. The mutex
// makes inserts atomic the way the DB constraints do.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[uuid.UUID]member.Member
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{members: make(map[uuid.UUID]member.Member)}
}

func (s *InMemoryStore) Insert(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.RetirementNumber == m.RetirementNumber {
			return sentinel.ErrDuplicateRetirementNumber
		}
		if existing.CardNumber == m.CardNumber {
			return sentinel.ErrDuplicateCardNumber
		}
	}
	s.members[m.ID] = *m
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for id, existing := range s.members {
		if id == m.ID {
			continue
		}
		if existing.RetirementNumber == m.RetirementNumber {
			return sentinel.ErrDuplicateRetirementNumber
		}
		if existing.CardNumber == m.CardNumber {
			return sentinel.ErrDuplicateCardNumber
		}
	}
	s.members[m.ID] = *m
	return nil
}

func (s *InMemoryStore) FindByRetirementNumber(_ context.Context, retirementNumber string) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.RetirementNumber == retirementNumber {
			copy := m
			return &copy, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) MaxCardSequence(_ context.Context, branchCode string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for _, m := range s.members {
		if !member.InBranch(m.CardNumber, branchCode) {
			continue
		}
		if seq, ok := member.ParseCardSequence(m.CardNumber); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}

func (s *InMemoryStore) CardNumberExists(_ context.Context, cardNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.CardNumber == cardNumber {
			return true, nil
		}
	}
	return false, nil
}

// Len reports the number of stored members. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}
