package orchestrator

import (
	"testing"
	"time"
)

func TestDurationRingETA(t *testing.T) {
	r := newDurationRing(3)

	if eta := r.etaSeconds(5); eta != nil {
		t.Fatalf("eta with no samples = %v, want nil", *eta)
	}

	r.add(2 * time.Second)
	if eta := r.etaSeconds(5); eta != nil {
		t.Fatalf("eta with one sample = %v, want nil", *eta)
	}

	r.add(4 * time.Second)
	eta := r.etaSeconds(5)
	if eta == nil {
		t.Fatal("eta with two samples is nil")
	}
	// mean 3s, 5 remaining
	if *eta != 15 {
		t.Errorf("eta = %v, want 15", *eta)
	}
}

func TestDurationRingRollsOver(t *testing.T) {
	r := newDurationRing(2)
	r.add(10 * time.Second)
	r.add(20 * time.Second)
	r.add(30 * time.Second) // evicts the 10s sample

	if got := r.mean(); got != 25*time.Second {
		t.Errorf("mean = %v, want 25s", got)
	}
	if got := r.count(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestDurationRingNegativeRemaining(t *testing.T) {
	r := newDurationRing(2)
	r.add(time.Second)
	r.add(time.Second)
	if eta := r.etaSeconds(-1); eta != nil {
		t.Errorf("eta for negative remaining = %v, want nil", *eta)
	}
}
