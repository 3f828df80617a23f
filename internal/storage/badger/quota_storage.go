package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// QuotaStorage persists weekly/burst usage counters in BadgerDB. Counter
// upserts are serialized by an internal mutex so increments are never lost
// to concurrent read-modify-write.
type QuotaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewQuotaStorage creates a new quota storage service
func NewQuotaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuotaStorage {
	return &QuotaStorage{db: db, logger: logger}
}

func weeklyKey(apiKeyID, week string) string {
	return apiKeyID + "|" + week
}

func burstKey(apiKeyID, hour string) string {
	return apiKeyID + "|" + hour
}

// GetWeeklyUsage returns the usage row for a key/week, or a zero row when
// none exists yet.
func (s *QuotaStorage) GetWeeklyUsage(ctx context.Context, apiKeyID, week string) (*models.WeeklyUsage, error) {
	var usage models.WeeklyUsage
	key := weeklyKey(apiKeyID, week)
	if err := s.db.Store().Get(key, &usage); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return &models.WeeklyUsage{Key: key, APIKeyID: apiKeyID, Week: week}, nil
		}
		return nil, fmt.Errorf("failed to get weekly usage %s: %w", key, err)
	}
	return &usage, nil
}

// IncrementWeekly bumps the per-class counter for a key/week
func (s *QuotaStorage) IncrementWeekly(ctx context.Context, apiKeyID, week string, class models.UsageClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage, err := s.GetWeeklyUsage(ctx, apiKeyID, week)
	if err != nil {
		return err
	}
	usage.Increment(class)
	if err := s.db.Store().Upsert(usage.Key, usage); err != nil {
		return fmt.Errorf("failed to increment weekly usage %s: %w", usage.Key, err)
	}
	return nil
}

// SetRollover records the rollover credits for a key/week. The value is
// written once and never changed within the week.
func (s *QuotaStorage) SetRollover(ctx context.Context, apiKeyID, week string, credits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage, err := s.GetWeeklyUsage(ctx, apiKeyID, week)
	if err != nil {
		return err
	}
	if usage.RolloverSet {
		return nil
	}
	usage.RolloverCredits = credits
	usage.RolloverSet = true
	if err := s.db.Store().Upsert(usage.Key, usage); err != nil {
		return fmt.Errorf("failed to set rollover for %s: %w", usage.Key, err)
	}
	return nil
}

// GetBurstUsage returns the burst row for a key/hour, or a zero row
func (s *QuotaStorage) GetBurstUsage(ctx context.Context, apiKeyID, hour string) (*models.BurstUsage, error) {
	var usage models.BurstUsage
	key := burstKey(apiKeyID, hour)
	if err := s.db.Store().Get(key, &usage); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return &models.BurstUsage{Key: key, APIKeyID: apiKeyID, Hour: hour}, nil
		}
		return nil, fmt.Errorf("failed to get burst usage %s: %w", key, err)
	}
	return &usage, nil
}

// IncrementBurst bumps the hourly counter for a key. Burst tracking is
// recorded regardless of soft-limit state.
func (s *QuotaStorage) IncrementBurst(ctx context.Context, apiKeyID, hour string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage, err := s.GetBurstUsage(ctx, apiKeyID, hour)
	if err != nil {
		return err
	}
	usage.Count++
	if err := s.db.Store().Upsert(usage.Key, usage); err != nil {
		return fmt.Errorf("failed to increment burst usage %s: %w", usage.Key, err)
	}
	return nil
}

// GetExtraUsage returns the pay-as-you-go state for a user, or a disabled
// zero record when none exists.
func (s *QuotaStorage) GetExtraUsage(ctx context.Context, userID string) (*models.ExtraUsage, error) {
	var extra models.ExtraUsage
	if err := s.db.Store().Get(userID, &extra); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return &models.ExtraUsage{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to get extra usage for %s: %w", userID, err)
	}
	return &extra, nil
}

// StoreExtraUsage inserts or replaces the pay-as-you-go state for a user
func (s *QuotaStorage) StoreExtraUsage(ctx context.Context, extra *models.ExtraUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().Upsert(extra.UserID, extra); err != nil {
		return fmt.Errorf("failed to store extra usage for %s: %w", extra.UserID, err)
	}
	return nil
}

// AppendExtraUsageLog records one pay-as-you-go charge
func (s *QuotaStorage) AppendExtraUsageLog(ctx context.Context, log *models.ExtraUsageLog) error {
	if err := s.db.Store().Insert(log.ID, log); err != nil {
		return fmt.Errorf("failed to append extra usage log %s: %w", log.ID, err)
	}
	return nil
}
