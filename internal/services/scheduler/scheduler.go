package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/models"
	"github.com/ternarybob/venari/internal/services/orchestrator"
)

// ErrInvalidInterval is returned for intervals under one minute
var ErrInvalidInterval = errors.New("interval must be at least 1 minute")

// minInterval is the floor for the crawl interval
const minInterval = time.Minute

// Service arms a periodic timer that triggers full crawl runs. The
// interval is re-read when each timer is armed, so an update takes
// effect at the next fire without rescheduling the pending one. Fires
// are skipped while paused or while a run is active; there is no
// catch-up.
type Service struct {
	orchestrator *orchestrator.Service
	clock        common.Clock
	logger       arbor.ILogger

	mu       sync.Mutex
	interval time.Duration
	paused   bool
	nextRun  *time.Time
	started  bool

	stop chan struct{}
	done chan struct{}
}

// NewService creates the scheduler with the configured interval
func NewService(orch *orchestrator.Service, interval time.Duration, clock common.Clock, logger arbor.ILogger) (*Service, error) {
	if interval < minInterval {
		return nil, ErrInvalidInterval
	}
	if clock == nil {
		clock = common.RealClock{}
	}
	return &Service{
		orchestrator: orch,
		clock:        clock,
		logger:       logger,
		interval:     interval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}, nil
}

// Start arms the periodic timer. Safe to call once.
func (s *Service) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.loop()
	s.logger.Info().
		Dur("interval", s.Interval()).
		Msg("Scheduler started")
}

// Stop halts the timer loop and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) loop() {
	defer close(s.done)

	for {
		// Interval is read when the timer is armed; an update while
		// waiting applies to the fire after this one
		interval := s.Interval()

		next := s.clock.Now().Add(interval)
		s.mu.Lock()
		s.nextRun = &next
		s.mu.Unlock()

		select {
		case <-s.stop:
			s.mu.Lock()
			s.nextRun = nil
			s.mu.Unlock()
			return
		case <-s.clock.After(interval):
			s.fire()
		}
	}
}

// fire triggers a full run unless paused or a run is already active.
// Missed fires are skipped, never queued.
func (s *Service) fire() {
	if s.IsPaused() {
		s.logger.Debug().Msg("Scheduler fire skipped: paused")
		return
	}

	err := s.orchestrator.Trigger(models.RunTypeAllCompanies, nil)
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		s.logger.Debug().Msg("Scheduler fire skipped: run in progress")
	case err != nil:
		s.logger.Warn().Err(err).Msg("Scheduled trigger failed")
	default:
		s.logger.Info().Msg("Scheduled crawl run triggered")
	}
}

// SetInterval updates the crawl interval. Takes effect at the next
// fire; the pending fire keeps its deadline.
func (s *Service) SetInterval(interval time.Duration) error {
	if interval < minInterval {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = interval
	return nil
}

// Interval returns the current crawl interval
func (s *Service) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Pause suppresses scheduled fires. An in-progress run is unaffected,
// and a manual trigger still works while paused.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables scheduled fires
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// IsPaused reports whether scheduled fires are suppressed
func (s *Service) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Status returns a consistent copy of the scheduler state
func (s *Service) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "stopped"
	if s.started {
		status = "running"
		if s.paused {
			status = "paused"
		}
	}

	var next *time.Time
	if s.nextRun != nil && !s.paused {
		copied := *s.nextRun
		next = &copied
	}

	return models.SchedulerStatus{
		NextRun:         next,
		IntervalMinutes: int(s.interval / time.Minute),
		IsPaused:        s.paused,
		Status:          status,
	}
}
