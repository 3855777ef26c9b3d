package throttle

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// MemoryStore keeps bucket state in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucketState)}
}

func (s *MemoryStore) Take(_ context.Context, key string, n int, cfg Config, now time.Time) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucketState{tokens: cfg.Capacity, lastRefill: now}
		s.buckets[key] = b
	}

	// Advance lastRefill by whole intervals only, so partial intervals are
	// not lost between calls.
	if elapsed := now.Sub(b.lastRefill); elapsed >= cfg.RefillInterval {
		intervals := int(elapsed / cfg.RefillInterval)
		b.tokens = min(cfg.Capacity, b.tokens+min(intervals, cfg.Capacity)*cfg.RefillRate)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * cfg.RefillInterval)
	}

	if b.tokens >= n {
		b.tokens -= n
		return b.tokens, 0, nil
	}

	missing := n - b.tokens
	need := (missing + cfg.RefillRate - 1) / cfg.RefillRate
	retry := b.lastRefill.Add(time.Duration(need) * cfg.RefillInterval).Sub(now)
	return b.tokens, retry, nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}
