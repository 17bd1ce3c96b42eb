package models

import (
	"time"
)

// JobStatus is the user-facing status of a persisted job
type JobStatus string

const (
	JobStatusNew      JobStatus = "new"
	JobStatusViewed   JobStatus = "viewed"
	JobStatusApplied  JobStatus = "applied"
	JobStatusRejected JobStatus = "rejected"
	JobStatusArchived JobStatus = "archived"
	JobStatusSaved    JobStatus = "saved"
)

// JobStage is the pipeline stage of a persisted job
type JobStage string

const (
	JobStageDiscover JobStage = "discover"
	JobStageReview   JobStage = "review"
	JobStagePrepare  JobStage = "prepare"
	JobStageApply    JobStage = "apply"
	JobStageFollowUp JobStage = "follow_up"
	JobStageArchive  JobStage = "archive"
)

// AIAnnotation holds the ranker's output for one job. All fields are
// replaced atomically by the store's AnnotateJobAI.
type AIAnnotation struct {
	MatchScore      *int       `json:"match_score,omitempty"` // 0..100, nil when unscored
	Recommended     bool       `json:"recommended"`
	Summary         string     `json:"summary,omitempty"`
	Pros            []string   `json:"pros,omitempty"`
	Cons            []string   `json:"cons,omitempty"`
	MatchedKeywords []string   `json:"matched_keywords,omitempty"`
	Rank            *int       `json:"rank,omitempty"` // 1..K, nil when unranked
	RecommendedOn   *time.Time `json:"recommended_on,omitempty"`
}

// Clamp enforces the annotation invariant: no score means no
// recommendation and no rank.
func (a *AIAnnotation) Clamp() {
	if a.MatchScore == nil {
		a.Recommended = false
		a.Rank = nil
		a.RecommendedOn = nil
	}
}

// Job is a persisted, deduplicated posting with optional AI annotation.
// Uniqueness per company is (CompanyID, ExternalID) when ExternalID is
// non-empty, otherwise (CompanyID, URL) on the canonical URL.
type Job struct {
	ID         string `json:"id" badgerhold:"key"`
	CompanyID  string `json:"company_id" badgerhold:"index"`
	ExternalID string `json:"external_id,omitempty"` // adapter-provided, empty when absent
	URL        string `json:"url"`                   // canonical

	Title       string     `json:"title"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`

	DiscoveredAt time.Time `json:"discovered_at" badgerhold:"index"`
	Status       JobStatus `json:"status" badgerhold:"index"`
	Stage        JobStage  `json:"stage"`

	AI AIAnnotation `json:"ai"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ContentEquals reports whether the mutable source fields of the job
// match the given posting. Used by the upsert to skip spurious updates.
func (j *Job) ContentEquals(p Posting) bool {
	if j.Title != p.Title || j.Location != p.Location || j.Description != p.Description || j.URL != p.URL {
		return false
	}
	switch {
	case j.PostedAt == nil && p.PostedAt == nil:
		return true
	case j.PostedAt == nil || p.PostedAt == nil:
		return false
	default:
		return j.PostedAt.Equal(*p.PostedAt)
	}
}
