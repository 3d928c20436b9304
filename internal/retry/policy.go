// Package retry holds the retry policies used by the route fetcher.
package retry

import (
	"context"
	"errors"
	"time"
)

// Default attempt budget and wait for route fetches.
const (
	DefaultMaxAttempts = 5
	DefaultDelay       = 10 * time.Second
)

// FixedPolicy retries any failure up to MaxAttempts, waiting the same Delay
// between consecutive attempts.
type FixedPolicy struct {
	maxAttempts int
	delay       time.Duration
}

// NewFixedPolicy builds a policy. Non-positive attempts fall back to the
// default budget and a negative delay is treated as zero.
func NewFixedPolicy(maxAttempts int, delay time.Duration) *FixedPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = 0
	}
	return &FixedPolicy{maxAttempts: maxAttempts, delay: delay}
}

// MaxAttempts reports the total attempt budget.
func (p *FixedPolicy) MaxAttempts() int {
	return p.maxAttempts
}

// ShouldRetry decides whether another attempt follows the one numbered
// attempt (1-based) that failed with err.
func (p *FixedPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	// Caller cancellation is never retried; per-attempt timeouts are.
	return !errors.Is(err, context.Canceled)
}

// Backoff returns the wait before the next attempt.
func (p *FixedPolicy) Backoff(int) time.Duration {
	return p.delay
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
