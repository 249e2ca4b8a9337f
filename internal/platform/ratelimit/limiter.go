package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

// CounterStore tracks request counts per key and window bucket. Counters
// expire on their own so restarts and key churn never leak memory. The
// interface leaves room for a shared backend when the API runs on more
// than one instance.
type CounterStore interface {
	Incr(key string, ttl time.Duration) (int, error)
}

type memoryCounter struct {
	count     int
	expiresAt time.Time
}

type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]memoryCounter),
		now:      time.Now,
	}
}

func (s *MemoryCounterStore) Incr(key string, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !c.expiresAt.After(now) {
		c = memoryCounter{expiresAt: now.Add(ttl)}
	}
	c.count++
	s.counters[key] = c

	if len(s.counters) > 1024 {
		s.evictExpired(now)
	}

	return c.count, nil
}

func (s *MemoryCounterStore) evictExpired(now time.Time) {
	for key, c := range s.counters {
		if !c.expiresAt.After(now) {
			delete(s.counters, key)
		}
	}
}

// Limiter applies a fixed-window limit per identity.
type Limiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store CounterStore, limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether the identity may proceed in the current window.
func (l *Limiter) Allow(identity string) (bool, error) {
	bucket := l.now().Unix() / int64(l.window/time.Second)
	key := identity + ":" + strconv.FormatInt(bucket, 10)

	count, err := l.store.Incr(key, l.window)
	if err != nil {
		return false, err
	}

	return count <= l.limit, nil
}
