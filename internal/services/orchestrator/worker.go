package orchestrator

import (
	"context"
	"errors"

	"github.com/ternarybob/venari/internal/models"
)

// crawlCompany runs one company crawl end to end: open log, list
// postings, normalize and upsert, close log, update stats, hand new
// and changed job ids to the ranker. Returns the jobs-found count.
//
// Failures of a single company never fail the run; they surface only
// through the crawl log.
func (s *Service) crawlCompany(ctx context.Context, company *models.Company, jobIDs chan<- string) int {
	if ctx.Err() != nil {
		return 0
	}

	logs := s.storage.CrawlLogStorage()

	logID, err := logs.OpenCrawlLog(ctx, company.ID, company.AdapterKind)
	if err != nil {
		s.logger.Warn().
			Str("company_id", company.ID).
			Err(err).
			Msg("Could not open crawl log, skipping company")
		return 0
	}

	adapter, err := s.registry.Resolve(company.AdapterKind)
	if err != nil {
		s.closeLog(logID, models.CrawlStatusFailed, 0, err.Error())
		s.touchCompany(company.ID)
		return 0
	}

	postings, err := adapter.ListJobs(ctx, company)
	if err != nil {
		status := models.CrawlStatusFailed
		if errors.Is(err, context.Canceled) {
			status = models.CrawlStatusCancelled
		}
		s.logger.Warn().
			Str("company_id", company.ID).
			Str("adapter", string(company.AdapterKind)).
			Err(err).
			Msg("Company crawl failed")
		s.closeLog(logID, status, 0, err.Error())
		s.touchCompany(company.ID)
		return 0
	}

	jobsFound := 0
	var changedIDs []string

	for _, posting := range postings {
		if ctx.Err() != nil {
			// Cancelled mid-company: postings already upserted stay,
			// they are idempotent on re-crawl
			s.closeLog(logID, models.CrawlStatusCancelled, jobsFound, "")
			s.touchCompany(company.ID)
			return jobsFound
		}

		normalized := s.normalizer.Normalize(posting)
		if !normalized.Usable() {
			continue
		}

		action, jobID, err := s.upsertWithRetry(ctx, normalized, company.ID)
		if err != nil {
			s.logger.Warn().
				Str("company_id", company.ID).
				Str("url", normalized.URL).
				Err(err).
				Msg("Posting upsert failed twice, failing company")
			s.closeLog(logID, models.CrawlStatusFailed, jobsFound, err.Error())
			s.touchCompany(company.ID)
			return jobsFound
		}

		if action == models.UpsertInserted || action == models.UpsertUpdated {
			jobsFound++
			changedIDs = append(changedIDs, jobID)
		}
	}

	s.closeLog(logID, models.CrawlStatusCompleted, jobsFound, "")

	if err := s.storage.CompanyStorage().UpdateCompanyStats(context.Background(), company.ID, jobsFound, s.clock.Now()); err != nil {
		s.logger.Warn().Str("company_id", company.ID).Err(err).Msg("Failed to update company stats")
	}

	// Hand-off blocks when the ranker pool is saturated; the held
	// semaphore slot is the backpressure mechanism
	for _, id := range changedIDs {
		select {
		case jobIDs <- id:
		case <-ctx.Done():
			return jobsFound
		}
	}

	return jobsFound
}

// upsertWithRetry retries a store write once before failing the company
func (s *Service) upsertWithRetry(ctx context.Context, posting models.Posting, companyID string) (models.UpsertAction, string, error) {
	action, jobID, err := s.storage.JobStorage().UpsertJob(ctx, posting, companyID)
	if err == nil {
		return action, jobID, nil
	}
	return s.storage.JobStorage().UpsertJob(ctx, posting, companyID)
}

// closeLog closes the crawl log and feeds the outcome to telemetry.
// Uses a background context so cancelled crawls still record.
func (s *Service) closeLog(logID string, status models.CrawlStatus, jobsFound int, errText string) {
	logs := s.storage.CrawlLogStorage()
	if err := logs.CloseCrawlLog(context.Background(), logID, status, jobsFound, errText); err != nil {
		s.logger.Warn().Str("log_id", logID).Err(err).Msg("Failed to close crawl log")
		return
	}
	if log, err := logs.GetCrawlLog(context.Background(), logID); err == nil {
		s.telemetry.RecordCrawl(*log)
	}
}

// touchCompany updates only the last-crawled timestamp after a failed
// crawl; counters stay untouched
func (s *Service) touchCompany(companyID string) {
	if err := s.storage.CompanyStorage().TouchCompanyCrawled(context.Background(), companyID, s.clock.Now()); err != nil {
		s.logger.Warn().Str("company_id", companyID).Err(err).Msg("Failed to touch company")
	}
}
