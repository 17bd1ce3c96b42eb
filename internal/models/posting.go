package models

import (
	"time"
)

// Posting is one advertised job at a source. Adapters yield raw
// postings; the normalizer canonicalizes them in place before upsert.
type Posting struct {
	ExternalID  string     `json:"external_id,omitempty"`
	Title       string     `json:"title"`
	Location    string     `json:"location,omitempty"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
}

// Usable reports whether the posting carries the minimum fields to be
// persisted. Adapters drop unusable postings instead of failing a page.
func (p Posting) Usable() bool {
	return p.Title != "" && p.URL != ""
}

// UpsertAction describes what the store did with a posting
type UpsertAction string

const (
	UpsertInserted  UpsertAction = "inserted"
	UpsertUpdated   UpsertAction = "updated"
	UpsertUnchanged UpsertAction = "unchanged"
)
