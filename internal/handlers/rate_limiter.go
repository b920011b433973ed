package handlers

import (
	"strings"
	"sync"
	"time"
)

// sweepEvery bounds how often the limiter scans for stale buckets.
const sweepEvery = 64

type rateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter counts requests per key inside a fixed window. Buckets
// reset lazily when a request arrives after the window elapsed; stale buckets
// for keys that stopped sending are swept on a fixed cadence.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*windowBucket
	inserts int
}

type windowBucket struct {
	hits      int
	expiresAt time.Time
}

// newSimpleRateLimiter returns nil when limiting is disabled, which callers
// treat as "no middleware".
func newSimpleRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		now:     clock,
		buckets: make(map[string]*windowBucket),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]
	if bucket == nil || !now.Before(bucket.expiresAt) {
		l.buckets[key] = &windowBucket{hits: 1, expiresAt: now.Add(l.window)}
		l.inserts++
		if l.inserts >= sweepEvery {
			l.sweepLocked(now)
			l.inserts = 0
		}
		return true
	}

	if bucket.hits >= l.limit {
		return false
	}
	bucket.hits++
	return true
}

func (l *fixedWindowLimiter) sweepLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if !now.Before(bucket.expiresAt) {
			delete(l.buckets, key)
		}
	}
}
