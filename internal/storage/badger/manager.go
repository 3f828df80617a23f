package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
)

// Manager aggregates the Badger-backed stores behind one lifecycle
type Manager struct {
	db          *BadgerDB
	watches     interfaces.WatchStorage
	quota       interfaces.QuotaStorage
	apiKeys     interfaces.APIKeyStorage
	usageLogs   interfaces.UsageLogStorage
	domainStats interfaces.DomainStatsStorage
}

// NewManager opens the database and wires all stores
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return &Manager{
		db:          db,
		watches:     NewWatchStorage(db, logger),
		quota:       NewQuotaStorage(db, logger),
		apiKeys:     NewAPIKeyStorage(db, logger),
		usageLogs:   NewUsageLogStorage(db, logger),
		domainStats: NewDomainStatsStorage(db, logger),
	}, nil
}

func (m *Manager) Watches() interfaces.WatchStorage          { return m.watches }
func (m *Manager) Quota() interfaces.QuotaStorage            { return m.quota }
func (m *Manager) APIKeys() interfaces.APIKeyStorage         { return m.apiKeys }
func (m *Manager) UsageLogs() interfaces.UsageLogStorage     { return m.usageLogs }
func (m *Manager) DomainStats() interfaces.DomainStatsStorage { return m.domainStats }

// RunGC runs a value-log garbage collection pass
func (m *Manager) RunGC() {
	m.db.RunGC()
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
