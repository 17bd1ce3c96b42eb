package models

import (
	"time"
)

// WorkType is the user's workplace preference
type WorkType string

const (
	WorkTypeRemote WorkType = "remote"
	WorkTypeOffice WorkType = "office"
	WorkTypeHybrid WorkType = "hybrid"
	WorkTypeAny    WorkType = "any"
)

// ExperienceEntry is one role in the user's history
type ExperienceEntry struct {
	Title       string `json:"title" yaml:"title"`
	Company     string `json:"company" yaml:"company"`
	Years       int    `json:"years" yaml:"years"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// EducationEntry is one qualification
type EducationEntry struct {
	Institution string `json:"institution" yaml:"institution"`
	Degree      string `json:"degree" yaml:"degree"`
	Year        int    `json:"year,omitempty" yaml:"year,omitempty"`
}

// ProfilePreferences steer the ranker
type ProfilePreferences struct {
	Keywords        []string `json:"keywords" yaml:"keywords"`
	RemotePreferred bool     `json:"remote_preferred" yaml:"remote_preferred"`
	WorkType        WorkType `json:"work_type" yaml:"work_type"`
	ExperienceLevel string   `json:"experience_level" yaml:"experience_level"`
}

// UserProfile is the single active profile the ranker scores against.
// The orchestrator snapshots it once per run; the ranker treats the
// snapshot as read-only.
type UserProfile struct {
	ID          string             `json:"id" yaml:"-" badgerhold:"key"`
	ResumeText  string             `json:"resume_text" yaml:"resume_text"`
	Skills      []string           `json:"skills" yaml:"skills"`
	Experience  []ExperienceEntry  `json:"experience" yaml:"experience"`
	Education   []EducationEntry   `json:"education" yaml:"education"`
	Preferences ProfilePreferences `json:"preferences" yaml:"preferences"`
	UpdatedAt   time.Time          `json:"updated_at" yaml:"-"`
}
