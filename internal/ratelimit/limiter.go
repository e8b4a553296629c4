package ratelimit

import (
	"sync"
	"time"
)

// Limiter implements a sliding-window rate limit keyed by caller identity.
// State is process-local working memory: a restart resets all counters, which
// is acceptable because the limiter damps abuse rather than enforcing a quota.
type Limiter struct {
	limit    int
	window   time.Duration
	mu       sync.RWMutex
	clients  map[string]*clientWindow
	now      func() time.Time
}

type clientWindow struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// NewLimiter creates a limiter allowing at most limit accepted calls per
// identity within any trailing window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return NewLimiterWithClock(limit, window, time.Now)
}

// NewLimiterWithClock is NewLimiter with an injectable clock, for tests.
func NewLimiterWithClock(limit int, window time.Duration, now func() time.Time) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientWindow),
		now:     now,
	}
}

// Limit returns the configured per-window maximum.
func (l *Limiter) Limit() int {
	return l.limit
}

// Allow reports whether a call from the given identity may proceed, and if so
// records it. Stale timestamps are discarded lazily at check time; a denied
// call does not consume a slot. Also returns the remaining allowance and the
// time the window resets.
func (l *Limiter) Allow(identity string) (bool, int, time.Time) {
	l.mu.RLock()
	client, exists := l.clients[identity]
	l.mu.RUnlock()

	if !exists {
		l.mu.Lock()
		if client, exists = l.clients[identity]; !exists {
			client = &clientWindow{
				timestamps: make([]time.Time, 0, l.limit),
			}
			l.clients[identity] = client
		}
		l.mu.Unlock()
	}

	client.mu.Lock()
	defer client.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	// Discard timestamps outside the window
	valid := client.timestamps[:0]
	for _, ts := range client.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	client.timestamps = valid

	remaining := l.limit - len(client.timestamps)
	if remaining < 0 {
		remaining = 0
	}

	if len(client.timestamps) >= l.limit {
		resetTime := client.timestamps[0].Add(l.window)
		return false, remaining, resetTime
	}

	client.timestamps = append(client.timestamps, now)
	return true, remaining - 1, now.Add(l.window)
}
