// Package limits enforces the per-advisor daily validation quota. The check
// happens before pipeline entry; an exceeded quota fails fast with no partial
// work.
package limits

import (
	"context"

	"github.com/sebishield/validation-engine/internal/compliance"
)

// Counter is the per-advisor per-day usage store. Implementations must make
// Increment atomic per advisor to avoid undercounting under concurrent load.
type Counter interface {
	// Increment adds one call for the advisor's current local day and
	// returns the new count.
	Increment(ctx context.Context, advisorID string) (int, error)
	// Count returns the advisor's current local-day count.
	Count(ctx context.Context, advisorID string) (int, error)
	// Reset clears counters at the local-day boundary. Backends with
	// native expiry may treat this as a no-op.
	Reset(ctx context.Context) error
}

// Limiter wraps a Counter with the configured daily cap.
type Limiter struct {
	counter Counter
	limit   int
}

// NewLimiter creates a limiter with the given daily cap.
func NewLimiter(counter Counter, limit int) *Limiter {
	return &Limiter{counter: counter, limit: limit}
}

// Allow consumes one call for the advisor. It increments first and rejects
// when the new count exceeds the cap, so concurrent requests can never admit
// more than the configured limit. Counter errors fail open: an unreachable
// usage store must not take validation down.
func (l *Limiter) Allow(ctx context.Context, advisorID string) error {
	n, err := l.counter.Increment(ctx, advisorID)
	if err != nil {
		return nil
	}
	if n > l.limit {
		return &compliance.LimitExceededError{AdvisorID: advisorID, Limit: l.limit}
	}
	return nil
}

// Usage returns the advisor's current count, best effort.
func (l *Limiter) Usage(ctx context.Context, advisorID string) int {
	n, err := l.counter.Count(ctx, advisorID)
	if err != nil {
		return 0
	}
	return n
}

// Limit returns the configured daily cap.
func (l *Limiter) Limit() int {
	return l.limit
}

// Reset forwards the local-day boundary reset to the counter.
func (l *Limiter) Reset(ctx context.Context) error {
	return l.counter.Reset(ctx)
}
