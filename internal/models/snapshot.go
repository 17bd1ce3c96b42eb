package models

import (
	"time"
)

// RunType distinguishes a full sweep from an explicit company set
type RunType string

const (
	RunTypeAllCompanies RunType = "all_companies"
	RunTypeSearch       RunType = "search"
)

// RunPhase is the orchestrator's control-loop phase
type RunPhase string

const (
	RunPhaseIdle       RunPhase = "idle"
	RunPhaseRunning    RunPhase = "running"
	RunPhasePaused     RunPhase = "paused"
	RunPhaseCancelling RunPhase = "cancelling"
)

// RunProgress is a consistent copy of the current run's counters
type RunProgress struct {
	Type           RunType    `json:"type"`
	Processed      int        `json:"processed"`
	Total          int        `json:"total"`
	CurrentCompany string     `json:"current_company,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	ETASeconds     *float64   `json:"eta_seconds,omitempty"` // nil until 2 duration samples exist
}

// SchedulerStatus is a consistent copy of the scheduler's state
type SchedulerStatus struct {
	NextRun         *time.Time `json:"next_run,omitempty"`
	IntervalMinutes int        `json:"interval_minutes"`
	IsPaused        bool       `json:"is_paused"`
	Status          string     `json:"status"` // "running", "paused", "stopped"
}

// HealthLabel classifies an adapter kind's recent success rate.
// Labels only; they drive no control logic.
type HealthLabel string

const (
	HealthHealthy HealthLabel = "healthy" // success_rate >= 90%
	HealthWarning HealthLabel = "warning" // 70-89%
	HealthError   HealthLabel = "error"   // < 70%
)

// LabelForSuccessRate maps a success rate (0..1) to a health label
func LabelForSuccessRate(rate float64) HealthLabel {
	switch {
	case rate >= 0.90:
		return HealthHealthy
	case rate >= 0.70:
		return HealthWarning
	default:
		return HealthError
	}
}

// KindHealth aggregates crawl logs for one adapter kind over the
// telemetry window
type KindHealth struct {
	SuccessRate        float64     `json:"success_rate"`
	AvgDurationSeconds float64     `json:"avg_duration_seconds"`
	TotalRuns          int         `json:"total_runs"`
	ErrorCount         int         `json:"error_count"`
	Label              HealthLabel `json:"label"`
}

// StatusSnapshot is the full operator-facing view of the core
type StatusSnapshot struct {
	IsRunning     bool                       `json:"is_running"`
	IsPaused      bool                       `json:"is_paused"`
	CurrentRun    *RunProgress               `json:"current_run,omitempty"`
	Scheduler     SchedulerStatus            `json:"scheduler"`
	CrawlerHealth map[AdapterKind]KindHealth `json:"crawler_health"`
	RecentLogs    []CrawlLog                 `json:"recent_logs"`
}
