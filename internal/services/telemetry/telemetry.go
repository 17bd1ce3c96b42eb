package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// snapshotWindow is the rolling window for per-kind health aggregates
const snapshotWindow = 24 * time.Hour

// recentLogLimit caps the recent-logs portion of the snapshot
const recentLogLimit = 50

// ProgressSource exposes the orchestrator state needed for snapshots
type ProgressSource interface {
	Phase() models.RunPhase
	Progress() *models.RunProgress
}

// SchedulerSource exposes the scheduler state needed for snapshots
type SchedulerSource interface {
	Status() models.SchedulerStatus
}

// Service aggregates crawl outcomes and assembles the operator-facing
// status snapshot. Counters are lock-free; sources are bound after
// construction because they depend on this sink.
type Service struct {
	logs   interfaces.CrawlLogStorage
	logger arbor.ILogger

	mu        sync.RWMutex
	runs      ProgressSource
	scheduler SchedulerSource

	crawlsRecorded atomic.Int64
	crawlsFailed   atomic.Int64
	rankerCalls    atomic.Int64
	rankerErrors   atomic.Int64
}

// NewService creates the telemetry service over the crawl log store
func NewService(logs interfaces.CrawlLogStorage, logger arbor.ILogger) *Service {
	return &Service{logs: logs, logger: logger}
}

var _ interfaces.TelemetrySink = (*Service)(nil)

// BindSources attaches the orchestrator and scheduler once they exist
func (s *Service) BindSources(runs ProgressSource, scheduler SchedulerSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = runs
	s.scheduler = scheduler
}

// RecordCrawl receives one terminal crawl log
func (s *Service) RecordCrawl(log models.CrawlLog) {
	s.crawlsRecorded.Add(1)
	if log.Status == models.CrawlStatusFailed {
		s.crawlsFailed.Add(1)
	}

	s.logger.Debug().
		Str("company_id", log.CompanyID).
		Str("adapter", string(log.AdapterKind)).
		Str("status", string(log.Status)).
		Int("jobs_found", log.JobsFound).
		Dur("duration", log.Duration()).
		Msg("Crawl recorded")
}

// IncrRankerCalls counts one ranker LLM invocation
func (s *Service) IncrRankerCalls() {
	s.rankerCalls.Add(1)
}

// IncrRankerErrors counts one ranker failure (timeout or parse)
func (s *Service) IncrRankerErrors() {
	s.rankerErrors.Add(1)
}

// RankerErrorCount returns the ranker failures since startup
func (s *Service) RankerErrorCount() int64 {
	return s.rankerErrors.Load()
}

// RankerCallCount returns the ranker invocations since startup
func (s *Service) RankerCallCount() int64 {
	return s.rankerCalls.Load()
}

// Snapshot assembles the full operator-facing view: current run,
// scheduler state, per-kind health over the rolling window, and recent
// logs. Each section is consistent in itself; sections are not
// consistent with each other.
func (s *Service) Snapshot(ctx context.Context) (*models.StatusSnapshot, error) {
	s.mu.RLock()
	runs := s.runs
	scheduler := s.scheduler
	s.mu.RUnlock()

	snapshot := &models.StatusSnapshot{
		CrawlerHealth: make(map[models.AdapterKind]models.KindHealth),
	}

	if runs != nil {
		phase := runs.Phase()
		snapshot.IsRunning = phase == models.RunPhaseRunning || phase == models.RunPhaseCancelling
		snapshot.CurrentRun = runs.Progress()
	}
	if scheduler != nil {
		snapshot.Scheduler = scheduler.Status()
		snapshot.IsPaused = snapshot.Scheduler.IsPaused
	}

	health, err := s.logs.AggregateByAdapterKind(ctx, snapshotWindow)
	if err != nil {
		return nil, err
	}
	snapshot.CrawlerHealth = health

	recent, err := s.logs.RecentLogs(ctx, time.Now().Add(-snapshotWindow), recentLogLimit)
	if err != nil {
		return nil, err
	}
	snapshot.RecentLogs = recent

	return snapshot, nil
}
