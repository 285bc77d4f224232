package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
)

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore keeps move idempotency keys in process memory.
type IdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]ports.IdempotencyRecord
	now     func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		entries: map[string]ports.IdempotencyRecord{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *IdempotencyStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (*ports.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Save stores the entry unless the key is taken. A taken key with a matching hash
// returns the stored entry, otherwise ErrIdempotencyConflict.
func (s *IdempotencyStore) Save(_ context.Context, entry ports.IdempotencyRecord) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.Key]; ok {
		if existing.RequestHash != entry.RequestHash {
			return &existing, ports.ErrIdempotencyConflict
		}
		return &existing, nil
	}
	now := s.now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.entries[entry.Key] = entry
	return &entry, nil
}
