package addressbook

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-node
// development. Registrations do not survive a restart, which only
// costs one extra registrar call per address afterwards.
type MemoryStore struct {
	mu   sync.RWMutex
	regs map[string]*Registration
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{regs: make(map[string]*Registration)}
}

// Get returns the registration for hash, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, hash string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.regs[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

// Create inserts a new registration, or ErrDuplicateKey.
func (s *MemoryStore) Create(ctx context.Context, reg *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regs[reg.AddressHash]; ok {
		return ErrDuplicateKey
	}
	cp := *reg
	s.regs[reg.AddressHash] = &cp
	return nil
}

// Touch bumps usage for hash.
func (s *MemoryStore) Touch(ctx context.Context, hash string, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.regs[hash]
	if !ok {
		return ErrNotFound
	}
	reg.UsageCount++
	if usedAt.After(reg.LastUsedAt) {
		reg.LastUsedAt = usedAt
	}
	return nil
}

// DeleteLastUsedBefore removes stale registrations.
func (s *MemoryStore) DeleteLastUsedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for hash, reg := range s.regs {
		if reg.LastUsedAt.Before(cutoff) {
			delete(s.regs, hash)
			removed++
		}
	}
	return removed, nil
}

// Stats returns aggregate usage numbers.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &Stats{Count: int64(len(s.regs))}
	for _, reg := range s.regs {
		stats.TotalUsage += reg.UsageCount
	}
	if stats.Count > 0 {
		stats.AverageUsage = float64(stats.TotalUsage) / float64(stats.Count)
	}
	return stats, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
