package badger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// upsertStripes serializes concurrent upserts that race on the same
// uniqueness key. 64 stripes keeps contention low across companies.
const upsertStripes = 64

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	locks  [upsertStripes]sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) stripe(companyID, key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(companyID))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return &s.locks[h.Sum32()%upsertStripes]
}

// UpsertJob inserts or refreshes a normalized posting. Uniqueness is
// (company, external id) when the external id is set, else (company,
// canonical URL). Mutable fields refresh only when changed; the
// discovery timestamp is preserved on update.
func (s *JobStorage) UpsertJob(ctx context.Context, posting models.Posting, companyID string) (models.UpsertAction, string, error) {
	if companyID == "" {
		return "", "", fmt.Errorf("company ID is required")
	}
	if !posting.Usable() {
		return "", "", fmt.Errorf("posting missing title or URL")
	}

	key := posting.ExternalID
	if key == "" {
		key = posting.URL
	}
	mu := s.stripe(companyID, key)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.findByUniquenessKey(companyID, posting)
	if err != nil {
		return "", "", err
	}

	now := time.Now()

	if existing == nil {
		job := &models.Job{
			ID:           common.NewJobID(),
			CompanyID:    companyID,
			ExternalID:   posting.ExternalID,
			URL:          posting.URL,
			Title:        posting.Title,
			Location:     posting.Location,
			Description:  posting.Description,
			PostedAt:     posting.PostedAt,
			DiscoveredAt: now,
			Status:       models.JobStatusNew,
			Stage:        models.JobStageDiscover,
			UpdatedAt:    now,
		}
		if err := s.db.Store().Insert(job.ID, job); err != nil {
			return "", "", fmt.Errorf("failed to insert job: %w", err)
		}
		return models.UpsertInserted, job.ID, nil
	}

	if existing.ContentEquals(posting) {
		return models.UpsertUnchanged, existing.ID, nil
	}

	existing.Title = posting.Title
	existing.Location = posting.Location
	existing.Description = posting.Description
	existing.URL = posting.URL
	existing.PostedAt = posting.PostedAt
	existing.UpdatedAt = now
	// DiscoveredAt, Status, Stage and AI fields are preserved

	if err := s.db.Store().Update(existing.ID, existing); err != nil {
		return "", "", fmt.Errorf("failed to update job: %w", err)
	}
	return models.UpsertUpdated, existing.ID, nil
}

func (s *JobStorage) findByUniquenessKey(companyID string, posting models.Posting) (*models.Job, error) {
	var jobs []models.Job
	var query *badgerhold.Query
	if posting.ExternalID != "" {
		query = badgerhold.Where("CompanyID").Eq(companyID).And("ExternalID").Eq(posting.ExternalID)
	} else {
		query = badgerhold.Where("CompanyID").Eq(companyID).And("ExternalID").Eq("").And("URL").Eq(posting.URL)
	}
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// AnnotateJobAI atomically replaces all AI fields for one job. The
// per-key stripe guarantees no torn annotation under concurrent writes.
func (s *JobStorage) AnnotateJobAI(ctx context.Context, jobID string, ai models.AIAnnotation) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	key := job.ExternalID
	if key == "" {
		key = job.URL
	}
	mu := s.stripe(job.CompanyID, key)
	mu.Lock()
	defer mu.Unlock()

	// Re-read inside the lock so the annotation lands on current content
	job, err = s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	ai.Clamp()
	job.AI = ai
	job.UpdatedAt = time.Now()

	if err := s.db.Store().Update(job.ID, job); err != nil {
		return fmt.Errorf("failed to annotate job: %w", err)
	}
	return nil
}

func (s *JobStorage) ListJobsByCompany(ctx context.Context, companyID string) ([]*models.Job, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("CompanyID").Eq(companyID).Index("CompanyID")); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) ListJobsByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("Status").Eq(status).Index("Status")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}
	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Job{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return int(count), nil
}
