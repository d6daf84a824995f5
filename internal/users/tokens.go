package users

import (
	"context"
	"sync"
	"time"

	"github.com/laxjovial/assistant-core/internal/data/redisstore"
)

// TokenStore holds short-lived auth artifacts (sessions, OTPs, reset
// tokens) with a TTL. Redis-backed in production, in-memory as fallback.
type TokenStore interface {
	Put(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	// IncrAttempts bumps a counter sharing the artifact's lifetime and
	// returns the new count.
	IncrAttempts(ctx context.Context, key string) (int64, error)
}

type redisTokenStore struct {
	store *redisstore.Store
}

func NewRedisTokenStore(store *redisstore.Store) TokenStore {
	return &redisTokenStore{store: store}
}

func (s *redisTokenStore) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.store.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	// Reset the attempts counter alongside a fresh artifact.
	return s.store.Del(ctx, key+":attempts")
}

func (s *redisTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.store.Get(ctx, key)
	if s.store.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *redisTokenStore) Delete(ctx context.Context, key string) error {
	return s.store.Del(ctx, key, key+":attempts")
}

func (s *redisTokenStore) IncrAttempts(ctx context.Context, key string) (int64, error) {
	count, err := s.store.Incr(ctx, key+":attempts")
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// First attempt pins the counter to the artifact's remaining TTL.
		if ttl, err := s.store.TTL(ctx, key); err == nil && ttl > 0 {
			_ = s.store.Set(ctx, key+":attempts", count, ttl)
		}
	}
	return count, nil
}

type memoryEntry struct {
	value     string
	attempts  int64
	expiresAt time.Time
}

type memoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *memoryTokenStore) Put(ctx context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *memoryTokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.liveLocked(key)
	if entry == nil {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (s *memoryTokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryTokenStore) IncrAttempts(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.liveLocked(key)
	if entry == nil {
		return 0, nil
	}
	entry.attempts++
	return entry.attempts, nil
}

func (s *memoryTokenStore) liveLocked(key string) *memoryEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return entry
}
