package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
)

// Maintenance runs background housekeeping on a cron schedule: sweeping
// crawl logs stuck in running state after a crash or kill (so the
// one-running-log-per-company invariant does not wedge future crawls)
// and Badger value-log GC.
type Maintenance struct {
	logs     interfaces.CrawlLogStorage
	gc       func() error // nil disables the GC job
	cron     *cron.Cron
	schedule string
	maxAge   time.Duration
	logger   arbor.ILogger
}

// NewMaintenance creates the maintenance runner
func NewMaintenance(logs interfaces.CrawlLogStorage, gc func() error, schedule string, maxAge time.Duration, logger arbor.ILogger) *Maintenance {
	return &Maintenance{
		logs:     logs,
		gc:       gc,
		cron:     cron.New(),
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// Start registers the housekeeping jobs and starts the cron runner. A
// sweep also runs immediately to clear logs left over from a previous
// process.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc(m.schedule, m.sweep); err != nil {
		return err
	}
	if m.gc != nil {
		if _, err := m.cron.AddFunc(m.schedule, m.runGC); err != nil {
			return err
		}
	}
	m.cron.Start()

	m.sweep()

	m.logger.Info().
		Str("schedule", m.schedule).
		Dur("max_age", m.maxAge).
		Msg("Maintenance started")
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info().Msg("Maintenance stopped")
}

func (m *Maintenance) runGC() {
	if err := m.gc(); err != nil {
		m.logger.Warn().Err(err).Msg("Value log GC failed")
	}
}

func (m *Maintenance) sweep() {
	swept, err := m.logs.SweepStaleLogs(context.Background(), m.maxAge)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Stale log sweep failed")
		return
	}
	if swept > 0 {
		m.logger.Info().Int("swept", swept).Msg("Closed stale crawl logs")
	}
}
