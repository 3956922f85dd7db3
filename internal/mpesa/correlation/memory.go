package correlation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns an in-process Store with lazy expiry. Only suitable
// for single-instance deployments; multi-instance setups need the redis
// store so every instance observes the same entries.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *memoryStore) Put(_ context.Context, checkoutRequestID string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.entries[checkoutRequestID] = memoryEntry{
		entry:     entry,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, checkoutRequestID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.entries[checkoutRequestID]
	if !ok {
		return nil, nil
	}
	if s.now().After(item.expiresAt) {
		delete(s.entries, checkoutRequestID)
		return nil, nil
	}

	entry := item.entry
	return &entry, nil
}

func (s *memoryStore) Delete(_ context.Context, checkoutRequestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, checkoutRequestID)
	return nil
}

// sweepLocked drops expired entries so the map does not grow unbounded on a
// write-heavy instance that rarely reads.
func (s *memoryStore) sweepLocked() {
	now := s.now()
	for key, item := range s.entries {
		if now.After(item.expiresAt) {
			delete(s.entries, key)
		}
	}
}
