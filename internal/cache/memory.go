package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps entries in a map guarded by a RWMutex. A janitor goroutine
// drops expired entries periodically; correctness does not depend on it since
// Get filters expired entries at read time.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryStore(janitorInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if janitorInterval > 0 {
		go s.janitor(janitorInterval)
	}
	return s
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.purgeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) purgeExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || entry.expired(s.now()) {
		return nil, nil
	}
	out := entry
	return &out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, payload json.RawMessage, ttl time.Duration) error {
	now := s.now()
	entry := Entry{
		Key:       key,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Status reports how many live entries exist plus a bounded key sample.
func (s *MemoryStore) Status(ctx context.Context, sample int) (int64, []string, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	count := int64(len(keys))
	if sample < 0 {
		sample = 0
	}
	if len(keys) > sample {
		keys = keys[:sample]
	}
	return count, keys, nil
}

func (s *MemoryStore) Clear(ctx context.Context, keys []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cleared int64
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			cleared++
		}
	}
	return cleared, nil
}

func (s *MemoryStore) ClearAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := int64(len(s.entries))
	s.entries = make(map[string]Entry)
	return cleared, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
