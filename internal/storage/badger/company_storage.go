package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CompanyStorage implements the CompanyStorage interface for Badger
type CompanyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCompanyStorage creates a new CompanyStorage instance
func NewCompanyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CompanyStorage {
	return &CompanyStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CompanyStorage) SaveCompany(ctx context.Context, company *models.Company) error {
	if err := company.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = now

	if err := s.db.Store().Upsert(company.ID, company); err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

func (s *CompanyStorage) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Store().Get(id, &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

func (s *CompanyStorage) GetCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	var companies []models.Company
	if err := s.db.Store().Find(&companies, badgerhold.Where("Name").Eq(name)); err != nil {
		return nil, fmt.Errorf("failed to find company: %w", err)
	}
	if len(companies) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &companies[0], nil
}

// ListActiveCompanies returns active companies ordered for crawling:
// never-crawled first, then last-crawled ascending, ties by ID.
func (s *CompanyStorage) ListActiveCompanies(ctx context.Context) ([]*models.Company, error) {
	var companies []models.Company
	if err := s.db.Store().Find(&companies, badgerhold.Where("Active").Eq(true)); err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}

	sort.SliceStable(companies, func(i, j int) bool {
		a, b := companies[i], companies[j]
		switch {
		case a.LastCrawledAt == nil && b.LastCrawledAt == nil:
			return a.ID < b.ID
		case a.LastCrawledAt == nil:
			return true
		case b.LastCrawledAt == nil:
			return false
		case !a.LastCrawledAt.Equal(*b.LastCrawledAt):
			return a.LastCrawledAt.Before(*b.LastCrawledAt)
		default:
			return a.ID < b.ID
		}
	})

	result := make([]*models.Company, len(companies))
	for i := range companies {
		result[i] = &companies[i]
	}
	return result, nil
}

func (s *CompanyStorage) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	var companies []models.Company
	if err := s.db.Store().Find(&companies, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	result := make([]*models.Company, len(companies))
	for i := range companies {
		result[i] = &companies[i]
	}
	return result, nil
}

func (s *CompanyStorage) UpdateCompanyStats(ctx context.Context, companyID string, jobsFound int, crawledAt time.Time) error {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}

	company.LastCrawledAt = &crawledAt
	company.TotalJobsFound += jobsFound
	if jobsFound == 0 {
		company.ConsecutiveEmptyCrawls++
	} else {
		company.ConsecutiveEmptyCrawls = 0
	}
	company.UpdatedAt = time.Now()

	if err := s.db.Store().Update(company.ID, company); err != nil {
		return fmt.Errorf("failed to update company stats: %w", err)
	}
	return nil
}

// TouchCompanyCrawled marks the crawl attempt without touching counters
func (s *CompanyStorage) TouchCompanyCrawled(ctx context.Context, companyID string, crawledAt time.Time) error {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}

	company.LastCrawledAt = &crawledAt
	company.UpdatedAt = time.Now()

	if err := s.db.Store().Update(company.ID, company); err != nil {
		return fmt.Errorf("failed to touch company: %w", err)
	}
	return nil
}
