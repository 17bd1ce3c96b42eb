package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/common"
	"github.com/ternarybob/venari/internal/interfaces"
)

var _ interfaces.StorageManager = (*Manager)(nil)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	company  interfaces.CompanyStorage
	job      interfaces.JobStorage
	crawlLog interfaces.CrawlLogStorage
	profile  interfaces.ProfileStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		company:  NewCompanyStorage(db, logger),
		job:      NewJobStorage(db, logger),
		crawlLog: NewCrawlLogStorage(db, logger),
		profile:  NewProfileStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// CompanyStorage returns the Company storage interface
func (m *Manager) CompanyStorage() interfaces.CompanyStorage {
	return m.company
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// CrawlLogStorage returns the CrawlLog storage interface
func (m *Manager) CrawlLogStorage() interfaces.CrawlLogStorage {
	return m.crawlLog
}

// ProfileStorage returns the Profile storage interface
func (m *Manager) ProfileStorage() interfaces.ProfileStorage {
	return m.profile
}

// RunValueLogGC runs one value-log GC pass on the underlying database
func (m *Manager) RunValueLogGC() error {
	return m.db.RunValueLogGC()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
