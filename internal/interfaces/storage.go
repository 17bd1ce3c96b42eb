package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/venari/internal/models"
)

// ErrNotFound is returned by storages when an entity does not exist
var ErrNotFound = errors.New("not found")

// CompanyStorage persists crawl targets
type CompanyStorage interface {
	SaveCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	GetCompanyByName(ctx context.Context, name string) (*models.Company, error)

	// ListActiveCompanies returns active companies ordered by last-crawled
	// ascending with never-crawled companies first; ties break by ID.
	ListActiveCompanies(ctx context.Context) ([]*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)

	// UpdateCompanyStats records a completed crawl: last-crawled timestamp,
	// jobs-found counter, and the consecutive-empty-crawls counter
	// (incremented when jobsFound is zero, reset otherwise).
	UpdateCompanyStats(ctx context.Context, companyID string, jobsFound int, crawledAt time.Time) error

	// TouchCompanyCrawled updates only the last-crawled timestamp, used
	// when a crawl failed and counters must stay untouched.
	TouchCompanyCrawled(ctx context.Context, companyID string, crawledAt time.Time) error
}

// JobStorage persists deduplicated postings
type JobStorage interface {
	// UpsertJob inserts or refreshes a normalized posting for a company.
	// Uniqueness is (company, external id) when the external id is set,
	// else (company, canonical URL). Mutable fields refresh only when
	// changed; the discovery timestamp is preserved on update.
	UpsertJob(ctx context.Context, posting models.Posting, companyID string) (models.UpsertAction, string, error)

	GetJob(ctx context.Context, id string) (*models.Job, error)

	// AnnotateJobAI atomically replaces all AI fields for one job
	AnnotateJobAI(ctx context.Context, jobID string, ai models.AIAnnotation) error

	ListJobsByCompany(ctx context.Context, companyID string) ([]*models.Job, error)
	ListJobsByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error)
	CountJobs(ctx context.Context) (int, error)
}

// CrawlLogStorage persists per-crawl audit records
type CrawlLogStorage interface {
	// OpenCrawlLog opens a running log for a company crawl. A company has
	// at most one running log at a time; opening while one is running
	// returns an error. Empty companyID opens an orchestrator-scope log.
	OpenCrawlLog(ctx context.Context, companyID string, kind models.AdapterKind) (string, error)

	// CloseCrawlLog closes a log exactly once with a terminal status.
	// Closing an already-terminal log is an error.
	CloseCrawlLog(ctx context.Context, logID string, status models.CrawlStatus, jobsFound int, errText string) error

	GetCrawlLog(ctx context.Context, id string) (*models.CrawlLog, error)
	RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.CrawlLog, error)

	// AggregateByAdapterKind folds terminal logs newer than the window
	// into per-kind health aggregates.
	AggregateByAdapterKind(ctx context.Context, window time.Duration) (map[models.AdapterKind]models.KindHealth, error)

	// SweepStaleLogs closes running logs older than maxAge as failed.
	// Returns the number of logs swept.
	SweepStaleLogs(ctx context.Context, maxAge time.Duration) (int, error)
}

// ProfileStorage persists the single active user profile
type ProfileStorage interface {
	GetActiveProfile(ctx context.Context) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
}

// StorageManager bundles the entity storages over one database
type StorageManager interface {
	CompanyStorage() CompanyStorage
	JobStorage() JobStorage
	CrawlLogStorage() CrawlLogStorage
	ProfileStorage() ProfileStorage
	Close() error
}
