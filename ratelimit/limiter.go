// Package ratelimit implements fixed-window attempt limiting keyed by client
// identity. Counters are pluggable: MemoryCounter for a single process and
// RedisCounter when several processes share one quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter stores per-key attempt counts inside fixed windows.
// Every method must be atomic with respect to concurrent callers on the same key.
type Counter interface {
	// Incr adds one to key. The first increment starts a window of length
	// window; later increments leave the expiry untouched. It returns the
	// count after incrementing and the time left in the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Decr removes one attempt from key, never going below zero.
	Decr(ctx context.Context, key string) error
	// Count returns the current count and remaining window for key.
	// A missing or expired key reports zero.
	Count(ctx context.Context, key string) (int64, time.Duration, error)
	// Reset forgets key entirely.
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of an Attempt.
type Decision struct {
	Allowed bool
	// Remaining is the number of attempts left in the current window.
	Remaining int64
	// RetryAfter is how long the caller should wait when not allowed.
	RetryAfter time.Duration
}

// Limiter allows at most max attempts per key per window.
type Limiter struct {
	counter Counter
	max     int64
	window  time.Duration
}

// New creates a Limiter that allows max attempts per window.
func New(counter Counter, max int, window time.Duration) *Limiter {
	return &Limiter{
		counter: counter,
		max:     int64(max),
		window:  window,
	}
}

// Key builds a limiter key from an action name and a client identity.
func Key(action, identity string) string {
	return action + ":" + identity
}

// Max returns the attempt ceiling.
func (l *Limiter) Max() int { return int(l.max) }

// Window returns the window length.
func (l *Limiter) Window() time.Duration { return l.window }

// TooManyAttempts reports whether key has used up its attempts.
// It does not record an attempt.
func (l *Limiter) TooManyAttempts(ctx context.Context, key string) (bool, error) {
	n, _, err := l.counter.Count(ctx, key)
	if err != nil {
		return false, fmt.Errorf("ratelimit: count %s: %w", key, err)
	}
	return n >= l.max, nil
}

// Hit records one attempt for key and returns the new count.
func (l *Limiter) Hit(ctx context.Context, key string) (int64, error) {
	n, _, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return 0, fmt.Errorf("ratelimit: hit %s: %w", key, err)
	}
	return n, nil
}

// Attempt records an attempt only if one is still available. The increment
// and the comparison happen on the counter's atomic result, so concurrent
// callers sharing a key can never exceed max between them.
func (l *Limiter) Attempt(ctx context.Context, key string) (Decision, error) {
	n, ttl, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: attempt %s: %w", key, err)
	}
	if n > l.max {
		if err := l.counter.Decr(ctx, key); err != nil {
			return Decision{}, fmt.Errorf("ratelimit: release %s: %w", key, err)
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: l.max - n}, nil
}

// Undo gives back one attempt, e.g. when the guarded operation failed.
func (l *Limiter) Undo(ctx context.Context, key string) error {
	if err := l.counter.Decr(ctx, key); err != nil {
		return fmt.Errorf("ratelimit: undo %s: %w", key, err)
	}
	return nil
}

// AvailableIn returns how long until key's window resets.
func (l *Limiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	_, ttl, err := l.counter.Count(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("ratelimit: ttl %s: %w", key, err)
	}
	return ttl, nil
}

// Clear resets key.
func (l *Limiter) Clear(ctx context.Context, key string) error {
	return l.counter.Reset(ctx, key)
}
