package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps refresh tokens in process memory behind a mutex.
// Restarting the process drops every outstanding session; that is an
// accepted limitation of this store, not a bug. Use RedisStore where
// sessions must survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
	}
}

func (s *MemoryStore) Put(ctx context.Context, token string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token] = e
	return nil
}

// Get purges stale entries lazily: an expired entry found during lookup is
// removed and reported as absent.
func (s *MemoryStore) Get(ctx context.Context, token string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return Entry{}, ErrNotFound
	}

	if !time.Now().Before(e.ExpiresAt) {
		delete(s.entries, token)
		return Entry{}, ErrNotFound
	}

	return e, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
	return nil
}

var _ Store = (*MemoryStore)(nil)
