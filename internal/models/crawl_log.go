package models

import (
	"time"
)

// CrawlStatus is the lifecycle state of a crawl log
type CrawlStatus string

const (
	CrawlStatusRunning   CrawlStatus = "running"
	CrawlStatusCompleted CrawlStatus = "completed"
	CrawlStatusFailed    CrawlStatus = "failed"
	CrawlStatusCancelled CrawlStatus = "cancelled"
)

// CrawlLog records one company crawl (or one orchestrator-scope event
// when CompanyID is empty). Opened when the crawl starts, closed exactly
// once with a terminal status.
type CrawlLog struct {
	ID          string      `json:"id" badgerhold:"key"`
	CompanyID   string      `json:"company_id,omitempty" badgerhold:"index"` // empty for orchestrator-scope
	AdapterKind AdapterKind `json:"adapter_kind,omitempty"`
	StartedAt   time.Time   `json:"started_at" badgerhold:"index"`
	EndedAt     *time.Time  `json:"ended_at,omitempty"`
	Status      CrawlStatus `json:"status" badgerhold:"index"`
	JobsFound   int         `json:"jobs_found"`
	Error       string      `json:"error,omitempty"`
}

// Duration returns the crawl duration, zero while still running
func (l *CrawlLog) Duration() time.Duration {
	if l.EndedAt == nil {
		return 0
	}
	return l.EndedAt.Sub(l.StartedAt)
}

// Terminal reports whether the log has been closed
func (l *CrawlLog) Terminal() bool {
	return l.Status != CrawlStatusRunning
}
