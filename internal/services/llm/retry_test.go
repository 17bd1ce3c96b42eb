package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED"), true},
		{errors.New("quota exceeded for model"), true},
		{errors.New("rpc error: code = 429"), true},
		{errors.New("context deadline exceeded"), false},
		{errors.New("invalid api key"), false},
	}
	for _, c := range cases {
		if got := IsRateLimitError(c.err); got != c.want {
			t.Errorf("IsRateLimitError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestExtractRetryDelay(t *testing.T) {
	cases := []struct {
		err  error
		want time.Duration
	}{
		{nil, 0},
		{errors.New("429: Please retry in 30s"), 30 * time.Second},
		{errors.New("retryDelay: 12s"), 12 * time.Second},
		{errors.New("retryDelay:7.5s"), 7500 * time.Millisecond},
		{errors.New("rate limited, no hint"), 0},
	}
	for _, c := range cases {
		if got := ExtractRetryDelay(c.err); got != c.want {
			t.Errorf("ExtractRetryDelay(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	if got := config.CalculateBackoff(0, 0); got != 45*time.Second {
		t.Errorf("attempt 0 = %v, want 45s", got)
	}
	// 45s * 1.5 = 67.5s
	if got := config.CalculateBackoff(1, 0); got != 67500*time.Millisecond {
		t.Errorf("attempt 1 = %v, want 67.5s", got)
	}
	// Capped at MaxBackoff
	if got := config.CalculateBackoff(4, 0); got != 90*time.Second {
		t.Errorf("attempt 4 = %v, want cap 90s", got)
	}
}

func TestCalculateBackoffHonorsAPIDelay(t *testing.T) {
	config := NewDefaultRetryConfig()

	// API-provided delay plus headroom replaces the default base
	if got := config.CalculateBackoff(0, 20*time.Second); got != 25*time.Second {
		t.Errorf("api delay backoff = %v, want 25s", got)
	}
	if got := config.CalculateBackoff(0, 10*time.Minute); got != 90*time.Second {
		t.Errorf("huge api delay = %v, want cap 90s", got)
	}
}
