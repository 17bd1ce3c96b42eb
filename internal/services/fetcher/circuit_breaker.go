package fetcher

import (
	"sync"
	"time"

	"github.com/ternarybob/venari/internal/common"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

type hostBreaker struct {
	state          breakerState
	failures       int
	firstFailureAt time.Time
	openedAt       time.Time
	probeInFlight  bool
}

// CircuitBreaker trips a host open after threshold consecutive
// failures within the window. An open host rejects immediately until
// coolOff passes; half-open admits a single probe, and one success
// closes the circuit again.
type CircuitBreaker struct {
	mu        sync.Mutex
	hosts     map[string]*hostBreaker
	threshold int
	window    time.Duration
	coolOff   time.Duration
	clock     common.Clock
}

// NewCircuitBreaker creates a breaker with the given trip policy
func NewCircuitBreaker(threshold int, window, coolOff time.Duration, clock common.Clock) *CircuitBreaker {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &CircuitBreaker{
		hosts:     make(map[string]*hostBreaker),
		threshold: threshold,
		window:    window,
		coolOff:   coolOff,
		clock:     clock,
	}
}

func (cb *CircuitBreaker) host(host string) *hostBreaker {
	hb, ok := cb.hosts[host]
	if !ok {
		hb = &hostBreaker{}
		cb.hosts[host] = hb
	}
	return hb
}

// Allow reports whether a request to the host may proceed. In
// half-open state only one probe is admitted at a time.
func (cb *CircuitBreaker) Allow(host string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hb := cb.host(host)
	now := cb.clock.Now()

	switch hb.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if now.Sub(hb.openedAt) < cb.coolOff {
			return ErrCircuitOpen
		}
		hb.state = breakerHalfOpen
		hb.probeInFlight = true
		return nil
	case breakerHalfOpen:
		if hb.probeInFlight {
			return ErrCircuitOpen
		}
		hb.probeInFlight = true
		return nil
	}
	return nil
}

// RecordSuccess closes the circuit for the host
func (cb *CircuitBreaker) RecordSuccess(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hb := cb.host(host)
	hb.state = breakerClosed
	hb.failures = 0
	hb.probeInFlight = false
}

// RecordFailure counts a failure; threshold consecutive failures
// within the window trip the circuit open
func (cb *CircuitBreaker) RecordFailure(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hb := cb.host(host)
	now := cb.clock.Now()

	if hb.state == breakerHalfOpen {
		// Failed probe re-opens immediately
		hb.state = breakerOpen
		hb.openedAt = now
		hb.probeInFlight = false
		return
	}

	if hb.failures == 0 || now.Sub(hb.firstFailureAt) > cb.window {
		hb.failures = 0
		hb.firstFailureAt = now
	}
	hb.failures++

	if hb.failures >= cb.threshold {
		hb.state = breakerOpen
		hb.openedAt = now
		hb.failures = 0
	}
}
