package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is the in-process counter fallback. Entries expire lazily
// and a periodic sweep bounds memory. Counts are only consistent within a
// single instance.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		counters: make(map[string]*counter),
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, exists := s.counters[key]

	if !exists || now.After(c.expiresAt) {
		s.counters[key] = &counter{
			count:     1,
			expiresAt: now.Add(window),
		}
		return 1, window, nil
	}

	c.count++
	return c.count, c.expiresAt.Sub(now), nil
}

// cleanup periodically removes expired counters
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for key, c := range s.counters {
			if now.After(c.expiresAt) {
				delete(s.counters, key)
			}
		}
		s.mu.Unlock()
	}
}
