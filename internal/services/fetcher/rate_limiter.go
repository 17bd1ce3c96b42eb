package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter implements per-host rate limiting with a token bucket.
// A request waits up to maxWait for a token; past that it fails with
// ErrRateLimited rather than queueing unboundedly.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
	maxWait  time.Duration
}

// NewHostLimiter creates a limiter issuing perSecond tokens/sec with
// the given burst per host
func NewHostLimiter(perSecond float64, burst int, maxWait time.Duration) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(perSecond),
		burst:    burst,
		maxWait:  maxWait,
	}
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.perHost, l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}

// Wait blocks until a token for the host is available or the wait
// budget is exhausted
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.limiter(host).Wait(waitCtx); err != nil {
		// Distinguish caller cancellation from local budget exhaustion
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimited
	}
	return nil
}
