package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	payload []byte
	written time.Time
}

// MemoryStore is an in-process Store. It is the filesystem-free fake used
// by tests and the "memory" backend for one-off runs.
type MemoryStore struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemoryStore returns an empty MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now, entries: make(map[string]memEntry)}
}

func memKey(namespace, key string) string { return namespace + "/" + key }

// Get returns a copy of the payload when it is younger than maxAge.
func (s *MemoryStore) Get(_ context.Context, namespace, key string, maxAge time.Duration) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[memKey(namespace, key)]
	if !ok || !fresh(s.Now(), e.written, maxAge) {
		return nil, false, nil
	}
	return append([]byte(nil), e.payload...), true, nil
}

// Put stores a copy of payload stamped with the current clock.
func (s *MemoryStore) Put(_ context.Context, namespace, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]memEntry)
	}
	s.entries[memKey(namespace, key)] = memEntry{
		payload: append([]byte(nil), payload...),
		written: s.Now(),
	}
	return nil
}

// Len returns the number of stored entries, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
