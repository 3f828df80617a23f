package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// DomainStatsStorage persists domain-intelligence counters. The in-memory
// counters are authoritative; this store only survives restarts as a warm
// starting point.
type DomainStatsStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDomainStatsStorage creates a new domain stats storage service
func NewDomainStatsStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DomainStatsStorage {
	return &DomainStatsStorage{db: db, logger: logger}
}

// StoreDomainStats inserts or replaces the counters for a host
func (s *DomainStatsStorage) StoreDomainStats(ctx context.Context, stats *models.DomainStats) error {
	if err := s.db.Store().Upsert(stats.Host, stats); err != nil {
		return fmt.Errorf("failed to store domain stats for %s: %w", stats.Host, err)
	}
	return nil
}

// GetDomainStats returns the counters for a host, or nil when absent
func (s *DomainStatsStorage) GetDomainStats(ctx context.Context, host string) (*models.DomainStats, error) {
	var stats models.DomainStats
	if err := s.db.Store().Get(host, &stats); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get domain stats for %s: %w", host, err)
	}
	return &stats, nil
}

// GetAllDomainStats returns the counters for every known host
func (s *DomainStatsStorage) GetAllDomainStats(ctx context.Context) ([]*models.DomainStats, error) {
	var stats []*models.DomainStats
	if err := s.db.Store().Find(&stats, nil); err != nil {
		return nil, fmt.Errorf("failed to list domain stats: %w", err)
	}
	return stats, nil
}
