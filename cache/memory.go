package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var _ Store = (*MemoryStore)(nil)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node development.
// Expired entries are dropped lazily on read and swept on write.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowFunc func() time.Time
}

// MemoryStoreOption modifies a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithNowFunc sets the clock (primarily for testing TTL behaviour).
func WithNowFunc(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.nowFunc = now
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.nowFunc().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Errorf("[MemoryStore.Set] non-positive ttl for key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{value: value, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len reports the number of live entries (expired entries still pending sweep
// are excluded).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowFunc()
	count := 0
	for _, e := range s.entries {
		if !now.After(e.expiresAt) {
			count++
		}
	}
	return count
}
