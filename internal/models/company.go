package models

import (
	"fmt"
	"time"
)

// AdapterKind selects the strategy used to extract postings from a
// company's career endpoint. Immutable after company creation.
type AdapterKind string

const (
	// AdapterKindPagedAPI pages through a JSON endpoint until an empty page
	AdapterKindPagedAPI AdapterKind = "paged_api"
	// AdapterKindFeed reads a single JSON document of postings
	AdapterKindFeed AdapterKind = "feed"
	// AdapterKindAIParsed extracts postings from raw HTML via the LLM
	AdapterKindAIParsed AdapterKind = "ai_parsed"
)

// ValidAdapterKind reports whether k is a known adapter kind
func ValidAdapterKind(k AdapterKind) bool {
	switch k {
	case AdapterKindPagedAPI, AdapterKindFeed, AdapterKindAIParsed:
		return true
	}
	return false
}

// Company is a crawl target: one employer's career page.
type Company struct {
	ID          string      `json:"id" badgerhold:"key"`
	Name        string      `json:"name"`
	CareerURL   string      `json:"career_url"`
	AdapterKind AdapterKind `json:"adapter_kind"` // immutable after creation
	Active      bool        `json:"active"`

	// Crawl bookkeeping, mutated only by the orchestrator
	LastCrawledAt          *time.Time `json:"last_crawled_at,omitempty"`
	ConsecutiveEmptyCrawls int        `json:"consecutive_empty_crawls"`
	TotalJobsFound         int        `json:"total_jobs_found"`

	// ViabilityScore is a display-only signal (0..100), nil when unscored
	ViabilityScore *int `json:"viability_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields and the adapter kind
func (c *Company) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("company ID is required")
	}
	if c.Name == "" {
		return fmt.Errorf("company name is required")
	}
	if c.CareerURL == "" {
		return fmt.Errorf("company career_url is required")
	}
	if !ValidAdapterKind(c.AdapterKind) {
		return fmt.Errorf("unknown adapter kind %q", c.AdapterKind)
	}
	if c.ViabilityScore != nil && (*c.ViabilityScore < 0 || *c.ViabilityScore > 100) {
		return fmt.Errorf("viability score out of range: %d", *c.ViabilityScore)
	}
	return nil
}
