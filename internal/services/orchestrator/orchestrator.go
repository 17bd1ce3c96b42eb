package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/adapters"
	"github.com/ternarybob/venari/internal/services/ranker"
)

// Service owns the crawl state machine. One run executes at a time:
// a trigger while non-idle returns ErrBusy. Cancellation is
// cooperative and takes effect between companies, never mid-company.
type Service struct {
	storage    interfaces.StorageManager
	registry   *adapters.Registry
	normalizer *adapters.Normalizer
	ranker     *ranker.Service
	telemetry  interfaces.TelemetrySink
	config     *common.CrawlerConfig
	queueDepth int
	clock      common.Clock
	logger     arbor.ILogger

	mu        sync.Mutex
	phase     models.RunPhase
	progress  *models.RunProgress
	durations *durationRing
	cancelRun context.CancelFunc
	runDone   chan struct{}
}

// NewService creates the orchestrator
func NewService(storage interfaces.StorageManager, registry *adapters.Registry, normalizer *adapters.Normalizer, rankerSvc *ranker.Service, telemetry interfaces.TelemetrySink, config *common.CrawlerConfig, queueDepth int, clock common.Clock, logger arbor.ILogger) *Service {
	if clock == nil {
		clock = common.RealClock{}
	}
	return &Service{
		storage:    storage,
		registry:   registry,
		normalizer: normalizer,
		ranker:     rankerSvc,
		telemetry:  telemetry,
		config:     config,
		queueDepth: queueDepth,
		clock:      clock,
		logger:     logger,
		phase:      models.RunPhaseIdle,
		durations:  newDurationRing(config.ETAWindow),
	}
}

// Phase returns the current state machine phase
func (s *Service) Phase() models.RunPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Progress returns a copy of the current run's counters, nil when idle
func (s *Service) Progress() *models.RunProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		return nil
	}
	copied := *s.progress
	copied.ETASeconds = s.durations.etaSeconds(copied.Total - copied.Processed)
	return &copied
}

// Trigger starts a run. Returns ErrBusy unless idle. For search runs
// the caller's company order is preserved; for all-companies runs the
// queue is ordered oldest-crawled first.
func (s *Service) Trigger(runType models.RunType, companyIDs []string) error {
	if runType == models.RunTypeSearch && len(companyIDs) == 0 {
		return fmt.Errorf("%w: search run requires companies", ErrInvalid)
	}
	if runType != models.RunTypeAllCompanies && runType != models.RunTypeSearch {
		return fmt.Errorf("%w: unknown run type %q", ErrInvalid, runType)
	}

	s.mu.Lock()
	if s.phase != models.RunPhaseIdle {
		s.mu.Unlock()
		return ErrBusy
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.phase = models.RunPhaseRunning
	s.cancelRun = cancel
	s.runDone = done
	s.progress = &models.RunProgress{
		Type:      runType,
		StartedAt: s.clock.Now(),
	}
	// The ETA window is scoped to one run
	s.durations = newDurationRing(s.config.ETAWindow)
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.run(runCtx, runType, companyIDs)

		s.mu.Lock()
		s.phase = models.RunPhaseIdle
		s.progress = nil
		s.cancelRun = nil
		s.mu.Unlock()
	}()

	return nil
}

// Cancel requests cooperative cancellation of the active run.
// In-flight companies finish; queued companies are dropped.
func (s *Service) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.RunPhaseRunning {
		return ErrNotRunning
	}
	s.phase = models.RunPhaseCancelling
	s.cancelRun()
	return nil
}

// Wait blocks until the current run finishes. Returns immediately
// when idle.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.runDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Shutdown cancels any active run and waits for it to drain
func (s *Service) Shutdown() {
	s.mu.Lock()
	done := s.runDone
	if s.phase == models.RunPhaseRunning {
		s.phase = models.RunPhaseCancelling
		s.cancelRun()
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// run executes one pass over the company queue
func (s *Service) run(ctx context.Context, runType models.RunType, companyIDs []string) {
	start := s.clock.Now()

	profile, err := s.snapshotProfile(ctx)
	if err != nil {
		s.abortRun(ctx, fmt.Errorf("profile snapshot failed: %w", err))
		return
	}

	companies, err := s.buildQueue(ctx, runType, companyIDs)
	if err != nil {
		s.abortRun(ctx, fmt.Errorf("building company queue failed: %w", err))
		return
	}

	orchLogID, err := s.storage.CrawlLogStorage().OpenCrawlLog(ctx, "", "")
	if err != nil {
		s.abortRun(ctx, fmt.Errorf("opening run log failed: %w", err))
		return
	}

	s.mu.Lock()
	s.progress.Total = len(companies)
	s.mu.Unlock()

	s.logger.Info().
		Str("type", string(runType)).
		Int("companies", len(companies)).
		Msg("Crawl run started")

	// Bounded hand-off to the ranker pool. Workers block here when the
	// ranker falls behind, which throttles fetching transitively.
	jobIDs := make(chan string, s.queueDepth)
	rankerDone := make(chan struct{})
	go func() {
		defer close(rankerDone)
		s.ranker.RankAll(ctx, profile, jobIDs)
	}()

	sem := make(chan struct{}, s.config.MaxConcurrentCompanyCrawls)
	var wg sync.WaitGroup
	var totalJobs int64
	var jobsMu sync.Mutex
	cancelled := false

	for _, company := range companies {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		sem <- struct{}{}
		wg.Add(1)

		s.noteCompanyStarted(company.Name)

		go func(c *models.Company) {
			defer wg.Done()
			defer func() { <-sem }()

			companyStart := s.clock.Now()
			found := s.crawlCompany(ctx, c, jobIDs)

			jobsMu.Lock()
			totalJobs += int64(found)
			jobsMu.Unlock()

			s.noteCompanyFinished(s.clock.Now().Sub(companyStart))
		}(company)
	}

	wg.Wait()
	close(jobIDs)
	<-rankerDone

	// A cancel that lands after the last company was dispatched is
	// still a cancelled run
	if ctx.Err() != nil {
		cancelled = true
	}

	status := models.CrawlStatusCompleted
	if cancelled {
		status = models.CrawlStatusCancelled
	}
	// The run log closes with a background context so a cancelled run
	// still records its outcome
	if err := s.storage.CrawlLogStorage().CloseCrawlLog(context.Background(), orchLogID, status, int(totalJobs), ""); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close run log")
	}

	s.logger.Info().
		Str("type", string(runType)).
		Str("status", string(status)).
		Int("jobs_found", int(totalJobs)).
		Dur("duration", s.clock.Now().Sub(start)).
		Msg("Crawl run finished")
}

// abortRun records an orchestrator-scope failure; state returns to idle
func (s *Service) abortRun(ctx context.Context, cause error) {
	s.logger.Error().Err(cause).Msg("Run aborted")

	logs := s.storage.CrawlLogStorage()
	logID, err := logs.OpenCrawlLog(context.Background(), "", "")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not record run abort")
		return
	}
	if err := logs.CloseCrawlLog(context.Background(), logID, models.CrawlStatusFailed, 0, cause.Error()); err != nil {
		s.logger.Warn().Err(err).Msg("Could not close run abort log")
	}
}

// snapshotProfile loads the active profile once for the run. A missing
// profile degrades to an empty one; ranking still happens.
func (s *Service) snapshotProfile(ctx context.Context) (*models.UserProfile, error) {
	profile, err := s.storage.ProfileStorage().GetActiveProfile(ctx)
	if errors.Is(err, interfaces.ErrNotFound) {
		s.logger.Warn().Msg("No user profile configured, ranking against empty profile")
		return &models.UserProfile{}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) buildQueue(ctx context.Context, runType models.RunType, companyIDs []string) ([]*models.Company, error) {
	if runType == models.RunTypeAllCompanies {
		return s.storage.CompanyStorage().ListActiveCompanies(ctx)
	}

	// Search runs preserve the caller's order; unknown ids are skipped
	companies := make([]*models.Company, 0, len(companyIDs))
	for _, id := range companyIDs {
		company, err := s.storage.CompanyStorage().GetCompany(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Str("company_id", id).Msg("Unknown company in search run, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, nil
}

func (s *Service) noteCompanyStarted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress != nil {
		s.progress.CurrentCompany = name
	}
}

func (s *Service) noteCompanyFinished(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations.add(d)
	if s.progress != nil {
		s.progress.Processed++
	}
}
