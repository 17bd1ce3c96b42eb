package fetcher

import (
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior with exponential backoff and full
// jitter. MaxRetries counts retries after the first attempt, so zero
// means exactly one attempt.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NewRetryPolicy creates a retry policy from backoff bounds
func NewRetryPolicy(maxRetries int, initial, max time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:     maxRetries,
		InitialBackoff: initial,
		MaxBackoff:     max,
	}
}

// Backoff returns the wait before retry number attempt (0-based).
// Full jitter: uniform in [0, min(max, initial*2^attempt)], except a
// server-provided Retry-After hint overrides the jitter, clamped to
// the max backoff.
func (p *RetryPolicy) Backoff(attempt int, err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		if statusErr.RetryAfter > p.MaxBackoff {
			return p.MaxBackoff
		}
		return statusErr.RetryAfter
	}

	ceiling := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		ceiling *= 2
		if ceiling >= float64(p.MaxBackoff) {
			ceiling = float64(p.MaxBackoff)
			break
		}
	}
	return time.Duration(rand.Float64() * ceiling)
}
