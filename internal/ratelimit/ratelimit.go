// ABOUTME: Sliding-window rate limiter for authentication attempts
// ABOUTME: Tracks per-source-address attempt timestamps, independent of session state

package ratelimit

import (
	"sync"
	"time"
)

// Default limiter parameters: at most 10 authentication attempts per source
// address in a trailing 15-minute window.
const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxAttempts = 10
)

// Limiter caps authentication attempt frequency per source address.
// Entries for idle addresses are never evicted; the map is bounded by
// practical source-address cardinality, so hostile address churn grows it
// without limit.
type Limiter struct {
	mu       sync.Mutex
	window   time.Duration
	max      int
	attempts map[string][]time.Time
	now      func() time.Time
}

// New creates a limiter with the given window and attempt cap.
func New(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// NewDefault creates a limiter with the standard 15-minute/10-attempt budget.
func NewDefault() *Limiter {
	return New(DefaultWindow, DefaultMaxAttempts)
}

// CheckAndRecord prunes timestamps outside the trailing window, records the
// current attempt, and reports true when the request should be rejected.
// The attempt counts against the budget regardless of whether the credential
// check afterwards succeeds or fails: the threat model is volumetric
// guessing, not merely wrong guesses.
func (l *Limiter) CheckAndRecord(sourceAddr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.attempts[sourceAddr][:0]
	for _, ts := range l.attempts[sourceAddr] {
		if ts.After(cutoff) || ts.Equal(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.attempts[sourceAddr] = kept

	return len(kept) > l.max
}

// Tracked returns the number of source addresses with recorded attempts.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
