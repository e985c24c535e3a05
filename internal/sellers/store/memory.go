package store

import (
	"context"
	"sync"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

// MemoryStore is the default backend for development and tests. Like the
// Redis backend it answers no membership queries, so it exercises the
// full-scan lookup path.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.CacheRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.CacheRecord),
	}
}

func (s *MemoryStore) Get(ctx context.Context, dom string) (*domain.CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[dom]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *MemoryStore) Put(ctx context.Context, record *domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Domain] = *record
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
