package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the in-process ResultStore used when no Redis address is
// configured. Expired entries are dropped lazily on Get and Put.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, runID string, csv []byte) error {
	if runID == "" {
		return errors.New("run ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}

	s.entries[runID] = memoryEntry{
		data:      append([]byte(nil), csv...),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, runID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[runID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, runID)
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}
