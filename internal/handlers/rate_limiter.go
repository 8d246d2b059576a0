package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// windowCounter is a fixed-window counter per key. Counters reset when
// their window elapses; stale keys are swept opportunistically on insert.
type windowCounter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]windowBucket
}

type windowBucket struct {
	hits    int
	resetAt time.Time
}

func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowCounter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]windowBucket),
	}
}

func (l *windowCounter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.resetAt) {
		l.sweep(now)
		l.buckets[key] = windowBucket{hits: 1, resetAt: now.Add(l.window)}
		return true
	}
	if bucket.hits >= l.limit {
		return false
	}

	bucket.hits++
	l.buckets[key] = bucket
	return true
}

// sweep drops buckets whose window has passed. Caller holds the lock.
func (l *windowCounter) sweep(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.resetAt) {
			delete(l.buckets, key)
		}
	}
}
