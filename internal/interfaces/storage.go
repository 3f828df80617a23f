// Package interfaces provides service interfaces for dependency injection.
package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// WatchStorage - interface for watch persistence
type WatchStorage interface {
	StoreWatch(ctx context.Context, watch *models.Watch) error
	GetWatch(ctx context.Context, id string) (*models.Watch, error)
	GetWatchesByAccount(ctx context.Context, accountID string) ([]*models.Watch, error)
	GetDueWatches(ctx context.Context, limit int) ([]*models.Watch, error)
	DeleteWatch(ctx context.Context, id string) error
	CountWatches(ctx context.Context) (int, error)
}

// QuotaStorage - interface for usage-counter persistence. Upserts must be
// atomic per key; callers never read-modify-write counters themselves.
type QuotaStorage interface {
	GetWeeklyUsage(ctx context.Context, apiKeyID, week string) (*models.WeeklyUsage, error)
	IncrementWeekly(ctx context.Context, apiKeyID, week string, class models.UsageClass) error
	SetRollover(ctx context.Context, apiKeyID, week string, credits int) error

	GetBurstUsage(ctx context.Context, apiKeyID, hour string) (*models.BurstUsage, error)
	IncrementBurst(ctx context.Context, apiKeyID, hour string) error

	GetExtraUsage(ctx context.Context, userID string) (*models.ExtraUsage, error)
	StoreExtraUsage(ctx context.Context, extra *models.ExtraUsage) error
	AppendExtraUsageLog(ctx context.Context, log *models.ExtraUsageLog) error
}

// APIKeyStorage - interface for API key persistence. Keys are stored only as
// SHA-256 hashes.
type APIKeyStorage interface {
	StoreKey(ctx context.Context, key *models.APIKey) error
	GetKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	GetKeysByUser(ctx context.Context, userID string) ([]*models.APIKey, error)
	TouchKey(ctx context.Context, id string) error
	RevokeKey(ctx context.Context, id string) error
}

// UsageLogStorage - interface for request audit logging
type UsageLogStorage interface {
	AppendUsageLog(ctx context.Context, log *models.UsageLog) error
	GetUsageLogs(ctx context.Context, apiKeyID string, limit int) ([]*models.UsageLog, error)
}

// DomainStatsStorage - interface for persisting domain-intelligence counters.
// State is advisory; loss on restart is acceptable.
type DomainStatsStorage interface {
	StoreDomainStats(ctx context.Context, stats *models.DomainStats) error
	GetDomainStats(ctx context.Context, host string) (*models.DomainStats, error)
	GetAllDomainStats(ctx context.Context) ([]*models.DomainStats, error)
}

// StorageManager aggregates the persistent stores behind one lifecycle
type StorageManager interface {
	Watches() WatchStorage
	Quota() QuotaStorage
	APIKeys() APIKeyStorage
	UsageLogs() UsageLogStorage
	DomainStats() DomainStatsStorage
	RunGC()
	Close() error
}
