package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// memQuotaStore is an in-memory QuotaStorage for tests
type memQuotaStore struct {
	weekly map[string]*models.WeeklyUsage
	burst  map[string]*models.BurstUsage
	extra  map[string]*models.ExtraUsage
	logs   []*models.ExtraUsageLog
}

func newMemQuotaStore() *memQuotaStore {
	return &memQuotaStore{
		weekly: make(map[string]*models.WeeklyUsage),
		burst:  make(map[string]*models.BurstUsage),
		extra:  make(map[string]*models.ExtraUsage),
	}
}

func (m *memQuotaStore) weeklyRow(apiKeyID, week string) *models.WeeklyUsage {
	key := apiKeyID + "|" + week
	row, ok := m.weekly[key]
	if !ok {
		row = &models.WeeklyUsage{Key: key, APIKeyID: apiKeyID, Week: week}
		m.weekly[key] = row
	}
	return row
}

func (m *memQuotaStore) GetWeeklyUsage(_ context.Context, apiKeyID, week string) (*models.WeeklyUsage, error) {
	row := *m.weeklyRow(apiKeyID, week)
	return &row, nil
}

func (m *memQuotaStore) IncrementWeekly(_ context.Context, apiKeyID, week string, class models.UsageClass) error {
	m.weeklyRow(apiKeyID, week).Increment(class)
	return nil
}

func (m *memQuotaStore) SetRollover(_ context.Context, apiKeyID, week string, credits int) error {
	row := m.weeklyRow(apiKeyID, week)
	if row.RolloverSet {
		return nil
	}
	row.RolloverCredits = credits
	row.RolloverSet = true
	return nil
}

func (m *memQuotaStore) GetBurstUsage(_ context.Context, apiKeyID, hour string) (*models.BurstUsage, error) {
	key := apiKeyID + "|" + hour
	if row, ok := m.burst[key]; ok {
		copied := *row
		return &copied, nil
	}
	return &models.BurstUsage{Key: key, APIKeyID: apiKeyID, Hour: hour}, nil
}

func (m *memQuotaStore) IncrementBurst(_ context.Context, apiKeyID, hour string) error {
	key := apiKeyID + "|" + hour
	row, ok := m.burst[key]
	if !ok {
		row = &models.BurstUsage{Key: key, APIKeyID: apiKeyID, Hour: hour}
		m.burst[key] = row
	}
	row.Count++
	return nil
}

func (m *memQuotaStore) GetExtraUsage(_ context.Context, userID string) (*models.ExtraUsage, error) {
	if row, ok := m.extra[userID]; ok {
		copied := *row
		return &copied, nil
	}
	return &models.ExtraUsage{UserID: userID}, nil
}

func (m *memQuotaStore) StoreExtraUsage(_ context.Context, extra *models.ExtraUsage) error {
	copied := *extra
	m.extra[extra.UserID] = &copied
	return nil
}

func (m *memQuotaStore) AppendExtraUsageLog(_ context.Context, log *models.ExtraUsageLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func testQuotaConfig() *common.QuotaConfig {
	cfg := common.DefaultConfig().Quota
	return &cfg
}

func newTestService(store *memQuotaStore, cfg *common.QuotaConfig, now time.Time) *Service {
	svc := NewService(store, cfg, common.GetLogger())
	svc.nowFn = func() time.Time { return now }
	return svc
}

func testKey() *models.APIKey {
	return &models.APIKey{ID: "key-1", UserID: "user-1"}
}

func TestCheckAllowsUnderAllLimits(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 30, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.False(t, decision.HardBlocked)
	assert.False(t, decision.SoftLimited)
	assert.Equal(t, 25, decision.Burst.Limit)
	assert.Equal(t, 1, decision.Burst.Count)
	assert.Equal(t, 24, decision.Burst.Remaining)
	assert.Equal(t, 125, decision.Weekly.Limit)
}

func TestRolloverCredits(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)

	// 40 requests used the previous week leaves 85 unused
	prevWeek := models.WeekLabel(now.AddDate(0, 0, -7))
	for i := 0; i < 40; i++ {
		require.NoError(t, store.IncrementWeekly(context.Background(), "key-1", prevWeek, models.UsageBasic))
	}

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)

	assert.Equal(t, 85, decision.Weekly.Rollover)
	assert.Equal(t, 210, decision.Weekly.TotalAvailable)
}

func TestRolloverCappedAtWeeklyLimit(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)

	// No usage last week: rollover caps at the weekly limit, never above
	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)
	assert.Equal(t, 125, decision.Weekly.Rollover)
	assert.Equal(t, 250, decision.Weekly.TotalAvailable)
}

func TestRolloverComputedOnce(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)

	prevWeek := models.WeekLabel(now.AddDate(0, 0, -7))
	_, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)

	// Late usage appearing in the previous week's bucket must not change
	// the already-computed rollover
	for i := 0; i < 100; i++ {
		require.NoError(t, store.IncrementWeekly(context.Background(), "key-1", prevWeek, models.UsageBasic))
	}
	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)
	assert.Equal(t, 125, decision.Weekly.Rollover)
}

func TestBurstHardBlock(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 45, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)

	hour := models.HourLabel(now)
	for i := 0; i < 25; i++ {
		require.NoError(t, store.IncrementBurst(context.Background(), "key-1", hour))
	}

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)

	assert.True(t, decision.HardBlocked)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Burst.Remaining)
	assert.Equal(t, 15*60, decision.Burst.ResetsIn)

	// Blocked requests do not consume burst
	row, _ := store.GetBurstUsage(context.Background(), "key-1", hour)
	assert.Equal(t, 25, row.Count)
}

func TestSoftLimitWhenWeeklyExhausted(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	cfg := testQuotaConfig()
	svc := newTestService(store, cfg, now)

	week := models.WeekLabel(now)
	require.NoError(t, store.SetRollover(context.Background(), "key-1", week, 0))
	for i := 0; i < cfg.WeeklyLimit; i++ {
		require.NoError(t, store.IncrementWeekly(context.Background(), "key-1", week, models.UsageBasic))
	}

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.True(t, decision.SoftLimited)
	assert.Zero(t, decision.ExtraCharge)
	assert.Equal(t, 0, decision.Weekly.Remaining)
}

func TestExtraUsageChargedBeforeSoftLimit(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	cfg := testQuotaConfig()
	svc := newTestService(store, cfg, now)

	week := models.WeekLabel(now)
	require.NoError(t, store.SetRollover(context.Background(), "key-1", week, 0))
	for i := 0; i < cfg.WeeklyLimit; i++ {
		require.NoError(t, store.IncrementWeekly(context.Background(), "key-1", week, models.UsageBasic))
	}
	require.NoError(t, store.StoreExtraUsage(context.Background(), &models.ExtraUsage{
		UserID:        "user-1",
		Enabled:       true,
		Balance:       1.00,
		SpendingLimit: 5.00,
	}))

	decision, err := svc.Check(context.Background(), testKey(), models.UsageStealth)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	assert.False(t, decision.SoftLimited)
	assert.Equal(t, cfg.RateStealth, decision.ExtraCharge)

	extra, _ := store.GetExtraUsage(context.Background(), "user-1")
	assert.InDelta(t, 1.00-cfg.RateStealth, extra.Balance, 1e-9)
	assert.InDelta(t, cfg.RateStealth, extra.Spent, 1e-9)
	require.Len(t, store.logs, 1)
	assert.Equal(t, models.UsageStealth, store.logs[0].Class)
}

func TestExtraUsageSpendingLimitFallsBackToSoftLimit(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	cfg := testQuotaConfig()
	svc := newTestService(store, cfg, now)

	week := models.WeekLabel(now)
	require.NoError(t, store.SetRollover(context.Background(), "key-1", week, 0))
	for i := 0; i < cfg.WeeklyLimit; i++ {
		require.NoError(t, store.IncrementWeekly(context.Background(), "key-1", week, models.UsageBasic))
	}
	require.NoError(t, store.StoreExtraUsage(context.Background(), &models.ExtraUsage{
		UserID:        "user-1",
		Enabled:       true,
		Balance:       1.00,
		Spent:         5.00,
		SpendingLimit: 5.00,
	}))

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)
	assert.True(t, decision.SoftLimited)
	assert.Zero(t, decision.ExtraCharge)
}

func TestCommitIncrementsWeeklyOnlyWhenCounted(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	svc := newTestService(store, testQuotaConfig(), now)
	week := models.WeekLabel(now)

	normal := &models.QuotaDecision{Allowed: true}
	require.NoError(t, svc.Commit(context.Background(), testKey(), models.UsageBasic, normal))

	soft := &models.QuotaDecision{Allowed: true, SoftLimited: true}
	require.NoError(t, svc.Commit(context.Background(), testKey(), models.UsageBasic, soft))

	charged := &models.QuotaDecision{Allowed: true, ExtraCharge: 0.002}
	require.NoError(t, svc.Commit(context.Background(), testKey(), models.UsageBasic, charged))

	usage, _ := store.GetWeeklyUsage(context.Background(), "key-1", week)
	assert.Equal(t, 1, usage.Total())
}

func TestDisableQuotaBypassesLimits(t *testing.T) {
	store := newMemQuotaStore()
	now := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	cfg := testQuotaConfig()
	cfg.DisableQuota = true
	svc := newTestService(store, cfg, now)

	hour := models.HourLabel(now)
	for i := 0; i < 100; i++ {
		require.NoError(t, store.IncrementBurst(context.Background(), "key-1", hour))
	}

	decision, err := svc.Check(context.Background(), testKey(), models.UsageBasic)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.HardBlocked)
}
