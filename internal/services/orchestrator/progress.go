package orchestrator

import (
	"time"
)

// durationRing keeps the last N per-company crawl durations for the
// rolling ETA estimate. Not safe for concurrent use; the orchestrator
// guards it with its state mutex.
type durationRing struct {
	samples []time.Duration
	size    int
	next    int
	filled  bool
}

func newDurationRing(size int) *durationRing {
	if size < 2 {
		size = 2
	}
	return &durationRing{samples: make([]time.Duration, size), size: size}
}

func (r *durationRing) add(d time.Duration) {
	r.samples[r.next] = d
	r.next++
	if r.next == r.size {
		r.next = 0
		r.filled = true
	}
}

func (r *durationRing) count() int {
	if r.filled {
		return r.size
	}
	return r.next
}

// mean returns the rolling mean, zero when empty
func (r *durationRing) mean() time.Duration {
	n := r.count()
	if n == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < n; i++ {
		total += r.samples[i]
	}
	return total / time.Duration(n)
}

// etaSeconds estimates remaining seconds for the run, nil until two
// samples exist
func (r *durationRing) etaSeconds(remaining int) *float64 {
	if r.count() < 2 || remaining < 0 {
		return nil
	}
	eta := r.mean().Seconds() * float64(remaining)
	return &eta
}
