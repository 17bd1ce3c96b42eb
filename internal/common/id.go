package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewCrawlLogID generates a unique crawl log ID with the "log_" prefix
func NewCrawlLogID() string {
	return "log_" + uuid.New().String()
}

// NewCompanyID generates a unique company ID with the "cmp_" prefix
func NewCompanyID() string {
	return "cmp_" + uuid.New().String()
}
