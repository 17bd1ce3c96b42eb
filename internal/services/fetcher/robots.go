package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// RobotsCache fetches and caches /robots.txt per host with a TTL.
// Fetch failures fall back to allow: a host without reachable robots
// rules is treated as permissive, matching robotstxt's 4xx handling.
type RobotsCache struct {
	mu      sync.Mutex
	entries map[string]*robotsEntry
	client  *http.Client
	ttl     time.Duration
	fetchTO time.Duration
	logger  arbor.ILogger
}

// NewRobotsCache creates a robots.txt cache with the given TTL. Each
// robots fetch is bounded by fetchTO; run contexts carry no deadline
// of their own.
func NewRobotsCache(client *http.Client, ttl, fetchTO time.Duration, logger arbor.ILogger) *RobotsCache {
	return &RobotsCache{
		entries: make(map[string]*robotsEntry),
		client:  client,
		ttl:     ttl,
		fetchTO: fetchTO,
		logger:  logger,
	}
}

// Allowed reports whether the user agent may fetch the URL per the
// host's robots.txt. No request is issued for disallowed paths.
func (rc *RobotsCache) Allowed(ctx context.Context, u *url.URL, userAgent string) (bool, error) {
	data, err := rc.data(ctx, u)
	if err != nil {
		return false, err
	}
	if data == nil {
		return true, nil
	}

	group := data.FindGroup(userAgent)
	if group == nil {
		return true, nil
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path), nil
}

func (rc *RobotsCache) data(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Host

	rc.mu.Lock()
	entry, ok := rc.entries[host]
	if ok && time.Since(entry.fetchedAt) < rc.ttl {
		rc.mu.Unlock()
		return entry.data, nil
	}
	rc.mu.Unlock()

	data := rc.fetch(ctx, u)

	rc.mu.Lock()
	rc.entries[host] = &robotsEntry{data: data, fetchedAt: time.Now()}
	rc.mu.Unlock()

	return data, nil
}

// fetch retrieves robots.txt for the host. Returns nil (allow all)
// when the file cannot be retrieved or parsed.
func (rc *RobotsCache) fetch(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	fetchCtx, cancel := context.WithTimeout(ctx, rc.fetchTO)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt fetch failed, allowing")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt parse failed, allowing")
		return nil
	}
	return data
}
