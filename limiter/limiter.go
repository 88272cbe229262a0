// Package limiter provides a per-key sliding-window rate limiter.
package limiter

import (
	"context"
	"sync"
	"time"
)

// Limiter rate-limits events per key (usually a client IP) over a sliding window.
// State lives in process memory and is lost on restart.
type Limiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter that allows max events per window for each key.
func New(max int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Window returns the length of the sliding window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Allow checks that key is under the limit and records the event if so.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, now)
	if len(kept) >= l.max {
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// Check returns true if key has not exceeded the limit.
// It does not record an event; call Record separately.
func (l *Limiter) Check(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.prune(key, now)) < l.max
}

// Record registers an event for key.
func (l *Limiter) Record(key string) {
	now := l.now()
	l.mu.Lock()
	l.hits[key] = append(l.hits[key], now)
	l.mu.Unlock()
}

// Reset forgets every event recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.hits, key)
	l.mu.Unlock()
}

// prune drops hits outside the window for key. Caller holds l.mu.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	hits := l.hits[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.hits, key)
		return nil
	}
	l.hits[key] = kept
	return kept
}

// Prune drops expired hits for every key and returns the number of keys left.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.hits {
		l.prune(key, now)
	}
	return len(l.hits)
}

// Run prunes the limiter once per window until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
