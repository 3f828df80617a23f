package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// WatchStorage persists watches in BadgerDB
type WatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewWatchStorage creates a new watch storage service
func NewWatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WatchStorage {
	return &WatchStorage{db: db, logger: logger}
}

// StoreWatch inserts or replaces a watch
func (s *WatchStorage) StoreWatch(ctx context.Context, watch *models.Watch) error {
	if err := s.db.Store().Upsert(watch.ID, watch); err != nil {
		return fmt.Errorf("failed to store watch %s: %w", watch.ID, err)
	}
	return nil
}

// GetWatch retrieves a watch by ID. Returns nil when not found.
func (s *WatchStorage) GetWatch(ctx context.Context, id string) (*models.Watch, error) {
	var watch models.Watch
	if err := s.db.Store().Get(id, &watch); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get watch %s: %w", id, err)
	}
	return &watch, nil
}

// GetWatchesByAccount returns all watches owned by an account
func (s *WatchStorage) GetWatchesByAccount(ctx context.Context, accountID string) ([]*models.Watch, error) {
	var watches []*models.Watch
	if err := s.db.Store().Find(&watches, badgerhold.Where("AccountID").Eq(accountID)); err != nil {
		return nil, fmt.Errorf("failed to list watches for account %s: %w", accountID, err)
	}
	return watches, nil
}

// GetDueWatches returns up to limit active watches whose check interval has
// elapsed, oldest last-check first. Never-checked watches sort first.
func (s *WatchStorage) GetDueWatches(ctx context.Context, limit int) ([]*models.Watch, error) {
	var active []*models.Watch
	if err := s.db.Store().Find(&active, badgerhold.Where("Status").Eq(models.WatchActive)); err != nil {
		return nil, fmt.Errorf("failed to query active watches: %w", err)
	}

	now := time.Now()
	due := make([]*models.Watch, 0, len(active))
	for _, w := range active {
		if w.Due(now) {
			due = append(due, w)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].LastCheckedAt, due[j].LastCheckedAt
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// DeleteWatch removes a watch by ID
func (s *WatchStorage) DeleteWatch(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Watch{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete watch %s: %w", id, err)
	}
	return nil
}

// CountWatches returns the total number of stored watches
func (s *WatchStorage) CountWatches(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Watch{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count watches: %w", err)
	}
	return int(count), nil
}
