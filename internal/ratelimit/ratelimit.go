// Package ratelimit implements a sliding-window admission counter
// keyed by caller identity, used to cap match creation per client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter allows up to limit admissions per key within a trailing
// window. Zero value is not usable; construct with New.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Admit records an attempt for key and reports whether it is allowed.
// On denial, retryAfter is how long until the oldest retained attempt
// leaves the window and frees a slot.
func (l *Limiter) Admit(key string) (allowed bool, retryAfter time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.hits[key], now, l.window)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		retryAfter = l.window - now.Sub(recent[0])
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter
	}

	l.hits[key] = append(recent, now)
	return true, 0
}

// prune drops timestamps that have left the window. Timestamps are
// appended in order, so the survivors keep the oldest first.
func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	for i, t := range stamps {
		if now.Sub(t) < window {
			return stamps[i:]
		}
	}
	return nil
}

// Sweep drops keys with no attempts left inside the window, bounding
// memory for one-off callers.
func (l *Limiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, stamps := range l.hits {
		recent := prune(stamps, now, l.window)
		if len(recent) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = recent
	}
}

// RunSweep runs Sweep on a fixed interval until ctx ends.
func (l *Limiter) RunSweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Sweep()
		}
	}
}
