package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
)

// maxBodyBytes caps response bodies read into memory
const maxBodyBytes = 10 * 1024 * 1024

// Service is the policy HTTP fetcher: robots gate, per-host token
// bucket, per-host circuit breaker, and retry with backoff behind a
// single Fetch call.
type Service struct {
	client        *http.Client
	limiter       *HostLimiter
	breaker       *CircuitBreaker
	robots        *RobotsCache
	policy        *RetryPolicy
	userAgents    []string
	proxies       []*url.URL
	uaCounter     atomic.Uint64
	proxyCounter  atomic.Uint64
	robotsRespect bool
	attemptTO     time.Duration
	logger        arbor.ILogger
	clock         common.Clock
}

// NewService creates a fetcher from HTTP policy configuration
func NewService(config *common.HTTPConfig, clock common.Clock, logger arbor.ILogger) (*Service, error) {
	if clock == nil {
		clock = common.RealClock{}
	}

	var proxies []*url.URL
	for _, p := range config.Proxies {
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", p, err)
		}
		proxies = append(proxies, u)
	}

	s := &Service{
		limiter:       NewHostLimiter(config.RatePerHost, config.BurstPerHost, config.RateWaitDuration()),
		breaker:       NewCircuitBreaker(config.CircuitFailThreshold, config.CircuitWindowDuration(), config.CircuitCoolOffDuration(), clock),
		policy:        NewRetryPolicy(config.MaxRetries, config.InitialBackoff(), config.MaxBackoff()),
		userAgents:    config.UserAgents,
		proxies:       proxies,
		robotsRespect: config.RobotsRespect,
		attemptTO:     config.RequestTimeoutDuration(),
		logger:        logger,
		clock:         clock,
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if len(proxies) > 0 {
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			return s.nextProxy(), nil
		}
	}
	// Per-attempt deadlines come from the request context, not the client
	s.client = &http.Client{Transport: transport}
	s.robots = NewRobotsCache(s.client, config.RobotsTTLDuration(), s.attemptTO, logger)

	return s, nil
}

var _ interfaces.Fetcher = (*Service)(nil)

func (s *Service) nextUserAgent() string {
	if len(s.userAgents) == 0 {
		return "venari/" + common.GetVersion()
	}
	n := s.uaCounter.Add(1) - 1
	return s.userAgents[n%uint64(len(s.userAgents))]
}

func (s *Service) nextProxy() *url.URL {
	if len(s.proxies) == 0 {
		return nil
	}
	n := s.proxyCounter.Add(1) - 1
	return s.proxies[n%uint64(len(s.proxies))]
}

// Fetch retrieves the URL body subject to politeness and resilience
// policy. Policy rejections (robots, open circuit, rate budget) return
// immediately; transient conditions retry with backoff.
func (s *Service) Fetch(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q", ErrMalformedResponse, rawURL)
	}

	userAgent := s.nextUserAgent()
	if ua, ok := headers["User-Agent"]; ok && ua != "" {
		userAgent = ua
	}

	if s.robotsRespect {
		allowed, err := s.robots.Allowed(ctx, u, userAgent)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRobotsDisallow, rawURL)
		}
	}

	if err := s.breaker.Allow(u.Host); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, u.Host)
	}

	var lastErr error
	attempts := s.policy.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := s.policy.Backoff(attempt-1, lastErr)
			s.logger.Debug().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("url", rawURL).
				Err(lastErr).
				Msg("Retrying fetch after backoff")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-s.clock.After(backoff):
			}
		}

		// A limiter rejection is local throttling, not a host failure;
		// the breaker only counts outcomes of issued requests
		if err := s.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}

		body, err := s.attempt(ctx, rawURL, userAgent, headers)
		if err == nil {
			s.breaker.RecordSuccess(u.Host)
			return body, nil
		}

		lastErr = err
		s.breaker.RecordFailure(u.Host)

		if !IsRetryable(err) {
			return nil, err
		}
	}

	s.logger.Warn().
		Int("attempts", attempts).
		Str("url", rawURL).
		Err(lastErr).
		Msg("Fetch retries exhausted")
	return nil, lastErr
}

func (s *Service) attempt(ctx context.Context, rawURL, userAgent string, headers map[string]string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTO)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/json;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// Surface the caller's deadline over the wrapped transport error
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return nil, context.DeadlineExceeded
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Code:       resp.StatusCode,
			Status:     resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
