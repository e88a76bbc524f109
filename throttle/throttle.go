// Package throttle provides keyed token-bucket limiters for suppressing
// repetitive output (diagnostic logs, chat notices) or bounding request rates.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the spacing applied to keys without an override.
const DefaultInterval = 5 * time.Second

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter owns one token bucket per key. The zero value is not usable; use
// New or Every.
type Limiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	overrides map[string]rate.Limit
	entries   map[string]*entry
}

// New returns a Limiter refilling each key at r tokens per second with burst b.
func New(r rate.Limit, b int) *Limiter {
	if b <= 0 {
		b = 1
	}
	return &Limiter{
		limit:     r,
		burst:     b,
		overrides: make(map[string]rate.Limit),
		entries:   make(map[string]*entry),
	}
}

// Every returns a Limiter that lets each key through at most once per interval.
func Every(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return New(rate.Every(interval), 1)
}

// SetInterval overrides the spacing for a single key.
func (l *Limiter) SetInterval(key string, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[key] = rate.Every(interval)
	delete(l.entries, key)
}

// Allow reports whether key may fire now.
func (l *Limiter) Allow(key string) bool {
	return l.AllowAt(key, time.Now())
}

// AllowAt reports whether key may fire at the given instant. Simulated
// clocks pass their own time so throttling stays deterministic.
func (l *Limiter) AllowAt(key string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		lim := l.limit
		if o, has := l.overrides[key]; has {
			lim = o
		}
		e = &entry{limiter: rate.NewLimiter(lim, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Reset forgets the bucket for key so the next call is allowed.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Prune drops buckets not touched since cutoff and returns how many remain.
func (l *Limiter) Prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
	return len(l.entries)
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
