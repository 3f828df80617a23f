package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// UsageLogStorage persists request audit logs in BadgerDB
type UsageLogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUsageLogStorage creates a new usage log storage service
func NewUsageLogStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UsageLogStorage {
	return &UsageLogStorage{db: db, logger: logger}
}

// AppendUsageLog records one handled request
func (s *UsageLogStorage) AppendUsageLog(ctx context.Context, log *models.UsageLog) error {
	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append usage log %s: %w", log.ID, err)
	}
	return nil
}

// GetUsageLogs returns up to limit most recent logs for an API key
func (s *UsageLogStorage) GetUsageLogs(ctx context.Context, apiKeyID string, limit int) ([]*models.UsageLog, error) {
	var logs []*models.UsageLog
	if err := s.db.Store().Find(&logs, badgerhold.Where("APIKeyID").Eq(apiKeyID)); err != nil {
		return nil, fmt.Errorf("failed to list usage logs for %s: %w", apiKeyID, err)
	}
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}
