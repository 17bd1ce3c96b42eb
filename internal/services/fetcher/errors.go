package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Sentinel errors for locally enforced policy. These never leave the
// fetcher as retryable conditions; adapters see them as terminal for
// the URL in question.
var (
	// ErrRateLimited means the local token-bucket wait budget was exceeded
	ErrRateLimited = errors.New("local rate limit wait exceeded")
	// ErrCircuitOpen means the per-host circuit breaker rejected the request
	ErrCircuitOpen = errors.New("circuit open for host")
	// ErrRobotsDisallow means robots.txt disallows the path; no request was issued
	ErrRobotsDisallow = errors.New("disallowed by robots.txt")
	// ErrMalformedResponse means the response body could not be interpreted
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError carries a non-2xx HTTP status through the retry loop
type StatusError struct {
	Code       int
	Status     string
	RetryAfter time.Duration // parsed Retry-After hint, zero when absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Status)
}

// Retryable reports whether the status is a transient condition
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case 408, 425, 429:
		return true
	}
	return e.Code >= 500
}

// IsRetryable classifies an attempt error as transient. Timeouts,
// transport errors, and retryable statuses qualify; policy errors and
// client errors do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrRobotsDisallow) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || isTemporaryNetErr(netErr)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return false
}

func isTemporaryNetErr(err net.Error) bool {
	type temporary interface{ Temporary() bool }
	if t, ok := err.(temporary); ok {
		return t.Temporary()
	}
	return false
}
