package badger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CrawlLogStorage implements the CrawlLogStorage interface for Badger
type CrawlLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes open/close so the one-running-log invariant holds
}

// NewCrawlLogStorage creates a new CrawlLogStorage instance
func NewCrawlLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CrawlLogStorage {
	return &CrawlLogStorage{
		db:     db,
		logger: logger,
	}
}

// OpenCrawlLog opens a running log. A company has at most one running
// log at any time; a second open for the same company fails.
func (s *CrawlLogStorage) OpenCrawlLog(ctx context.Context, companyID string, kind models.AdapterKind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if companyID != "" {
		var open []models.CrawlLog
		query := badgerhold.Where("CompanyID").Eq(companyID).And("Status").Eq(models.CrawlStatusRunning)
		if err := s.db.Store().Find(&open, query); err != nil {
			return "", fmt.Errorf("failed to check running logs: %w", err)
		}
		if len(open) > 0 {
			return "", fmt.Errorf("company %s already has a running crawl log", companyID)
		}
	}

	log := &models.CrawlLog{
		ID:          common.NewCrawlLogID(),
		CompanyID:   companyID,
		AdapterKind: kind,
		StartedAt:   time.Now(),
		Status:      models.CrawlStatusRunning,
	}

	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return "", fmt.Errorf("failed to open crawl log: %w", err)
	}
	return log.ID, nil
}

// CloseCrawlLog closes a log exactly once with a terminal status
func (s *CrawlLogStorage) CloseCrawlLog(ctx context.Context, logID string, status models.CrawlStatus, jobsFound int, errText string) error {
	if status == models.CrawlStatusRunning {
		return fmt.Errorf("cannot close log %s with non-terminal status", logID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.getLog(logID)
	if err != nil {
		return err
	}
	if log.Terminal() {
		return fmt.Errorf("crawl log %s already closed with status %s", logID, log.Status)
	}

	now := time.Now()
	log.EndedAt = &now
	log.Status = status
	log.JobsFound = jobsFound
	log.Error = errText

	if err := s.db.Store().Update(log.ID, log); err != nil {
		return fmt.Errorf("failed to close crawl log: %w", err)
	}
	return nil
}

func (s *CrawlLogStorage) getLog(id string) (*models.CrawlLog, error) {
	var log models.CrawlLog
	if err := s.db.Store().Get(id, &log); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get crawl log: %w", err)
	}
	return &log, nil
}

func (s *CrawlLogStorage) GetCrawlLog(ctx context.Context, id string) (*models.CrawlLog, error) {
	return s.getLog(id)
}

// RecentLogs returns logs started after since, newest first
func (s *CrawlLogStorage) RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.CrawlLog, error) {
	var logs []models.CrawlLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("StartedAt").Ge(since)); err != nil {
		return nil, fmt.Errorf("failed to query recent logs: %w", err)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})

	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// AggregateByAdapterKind folds terminal logs newer than the window into
// per-kind health aggregates
func (s *CrawlLogStorage) AggregateByAdapterKind(ctx context.Context, window time.Duration) (map[models.AdapterKind]models.KindHealth, error) {
	since := time.Now().Add(-window)
	logs, err := s.RecentLogs(ctx, since, 0)
	if err != nil {
		return nil, err
	}

	type acc struct {
		runs      int
		failures  int
		durations time.Duration
		completed int
	}
	byKind := make(map[models.AdapterKind]*acc)

	for _, log := range logs {
		if !log.Terminal() || log.CompanyID == "" {
			continue
		}
		a := byKind[log.AdapterKind]
		if a == nil {
			a = &acc{}
			byKind[log.AdapterKind] = a
		}
		a.runs++
		switch log.Status {
		case models.CrawlStatusFailed:
			a.failures++
		case models.CrawlStatusCompleted:
			a.durations += log.Duration()
			a.completed++
		}
	}

	result := make(map[models.AdapterKind]models.KindHealth, len(byKind))
	for kind, a := range byKind {
		successRate := float64(a.runs-a.failures) / float64(a.runs)
		avgDuration := 0.0
		if a.completed > 0 {
			avgDuration = (a.durations / time.Duration(a.completed)).Seconds()
		}
		result[kind] = models.KindHealth{
			SuccessRate:        successRate,
			AvgDurationSeconds: avgDuration,
			TotalRuns:          a.runs,
			ErrorCount:         a.failures,
			Label:              models.LabelForSuccessRate(successRate),
		}
	}
	return result, nil
}

// SweepStaleLogs closes running logs older than maxAge as failed.
// Guards against logs orphaned by a crash mid-crawl.
func (s *CrawlLogStorage) SweepStaleLogs(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	var stale []models.CrawlLog
	query := badgerhold.Where("Status").Eq(models.CrawlStatusRunning).And("StartedAt").Lt(cutoff)
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale logs: %w", err)
	}

	swept := 0
	for i := range stale {
		if err := s.CloseCrawlLog(ctx, stale[i].ID, models.CrawlStatusFailed, stale[i].JobsFound, "stale: no completion recorded"); err != nil {
			s.logger.Warn().Err(err).Str("log_id", stale[i].ID).Msg("Failed to sweep stale crawl log")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info().Int("count", swept).Msg("Swept stale crawl logs")
	}
	return swept, nil
}
