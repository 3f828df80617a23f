// -----------------------------------------------------------------------
// Quota Engine - weekly rollover, hourly burst, pay-as-you-go overflow
// -----------------------------------------------------------------------

package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// Service enforces per-key weekly and hourly limits.
//
// Burst breaches hard-block; weekly exhaustion first drains pay-as-you-go
// balance, then soft-limits (the request proceeds with rendering
// downgraded). Rollover credits are computed once per week per key.
type Service struct {
	storage interfaces.QuotaStorage
	config  *common.QuotaConfig
	logger  arbor.ILogger
	nowFn   func() time.Time
}

// NewService creates the quota engine
func NewService(storage interfaces.QuotaStorage, config *common.QuotaConfig, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// classRate returns the pay-as-you-go charge for a usage class
func (s *Service) classRate(class models.UsageClass) float64 {
	switch class {
	case models.UsageStealth:
		return s.config.RateStealth
	case models.UsageCaptcha:
		return s.config.RateCaptcha
	case models.UsageSearch:
		return s.config.RateSearch
	default:
		return s.config.RateBasic
	}
}

// Check evaluates limits for one request. Burst usage is recorded for
// every call regardless of outcome.
func (s *Service) Check(ctx context.Context, key *models.APIKey, class models.UsageClass) (*models.QuotaDecision, error) {
	now := s.nowFn().UTC()
	hour := models.HourLabel(now)
	week := models.WeekLabel(now)

	burst, err := s.storage.GetBurstUsage(ctx, key.ID, hour)
	if err != nil {
		return nil, fmt.Errorf("burst lookup failed: %w", err)
	}

	decision := &models.QuotaDecision{}
	decision.Burst = models.BurstInfo{
		Limit:    s.config.BurstLimit,
		Count:    burst.Count,
		ResetsIn: secondsToNextHour(now),
	}

	if burst.Count >= s.config.BurstLimit && !s.config.DisableQuota {
		decision.Burst.Remaining = 0
		decision.HardBlocked = true
		return decision, nil
	}

	// Burst tracking is recorded regardless of soft-limit state
	if err := s.storage.IncrementBurst(ctx, key.ID, hour); err != nil {
		s.logger.Warn().Err(err).Str("api_key", key.ID).Msg("Burst increment failed")
	}
	decision.Burst.Count++
	decision.Burst.Remaining = s.config.BurstLimit - decision.Burst.Count
	if decision.Burst.Remaining < 0 {
		decision.Burst.Remaining = 0
	}

	weekly, err := s.weeklyInfo(ctx, key.ID, now, week)
	if err != nil {
		return nil, err
	}
	decision.Weekly = *weekly

	if weekly.Remaining > 0 || s.config.DisableQuota {
		decision.Allowed = true
		return decision, nil
	}

	// Weekly exhausted: try pay-as-you-go, then soft-limit
	extra, err := s.storage.GetExtraUsage(ctx, key.UserID)
	if err != nil {
		return nil, fmt.Errorf("extra usage lookup failed: %w", err)
	}
	decision.Extra = *extra

	rate := s.classRate(class)
	if extra.Enabled && extra.Balance >= rate && extra.Spent+rate <= extra.SpendingLimit {
		extra.Balance -= rate
		extra.Spent += rate
		if err := s.storage.StoreExtraUsage(ctx, extra); err != nil {
			return nil, fmt.Errorf("extra usage charge failed: %w", err)
		}
		log := &models.ExtraUsageLog{
			ID:        common.NewRequestID(),
			UserID:    key.UserID,
			APIKeyID:  key.ID,
			Class:     class,
			Amount:    rate,
			CreatedAt: now,
		}
		if err := s.storage.AppendExtraUsageLog(ctx, log); err != nil {
			s.logger.Warn().Err(err).Str("user", key.UserID).Msg("Extra usage log append failed")
		}
		decision.Allowed = true
		decision.ExtraCharge = rate
		decision.Extra = *extra
		return decision, nil
	}

	decision.Allowed = true
	decision.SoftLimited = true
	return decision, nil
}

// weeklyInfo loads the current week's usage, computing rollover credits on
// first access of the week.
func (s *Service) weeklyInfo(ctx context.Context, apiKeyID string, now time.Time, week string) (*models.WeeklyInfo, error) {
	usage, err := s.storage.GetWeeklyUsage(ctx, apiKeyID, week)
	if err != nil {
		return nil, fmt.Errorf("weekly lookup failed: %w", err)
	}

	if !usage.RolloverSet {
		prevWeek := models.WeekLabel(now.AddDate(0, 0, -7))
		prev, perr := s.storage.GetWeeklyUsage(ctx, apiKeyID, prevWeek)
		if perr != nil {
			return nil, fmt.Errorf("previous week lookup failed: %w", perr)
		}
		rollover := s.config.WeeklyLimit - prev.Total()
		if rollover < 0 {
			rollover = 0
		}
		if rollover > s.config.WeeklyLimit {
			rollover = s.config.WeeklyLimit
		}
		if err := s.storage.SetRollover(ctx, apiKeyID, week, rollover); err != nil {
			return nil, fmt.Errorf("rollover write failed: %w", err)
		}
		usage, err = s.storage.GetWeeklyUsage(ctx, apiKeyID, week)
		if err != nil {
			return nil, err
		}
	}

	total := s.config.WeeklyLimit + usage.RolloverCredits
	used := usage.Total()
	remaining := total - used
	if remaining < 0 {
		remaining = 0
	}
	percent := 0.0
	if total > 0 {
		percent = float64(used) / float64(total) * 100
	}

	return &models.WeeklyInfo{
		Limit:          s.config.WeeklyLimit,
		Used:           used,
		Rollover:       usage.RolloverCredits,
		TotalAvailable: total,
		Remaining:      remaining,
		PercentUsed:    percent,
		ResetsAt:       models.NextWeekStart(now),
	}, nil
}

// Commit records a served request against the weekly counters. Requests
// that were soft-limited or charged to extra usage never increment the
// weekly counters.
func (s *Service) Commit(ctx context.Context, key *models.APIKey, class models.UsageClass, decision *models.QuotaDecision) error {
	if decision == nil || decision.SoftLimited || decision.ExtraCharge > 0 || decision.HardBlocked {
		return nil
	}
	week := models.WeekLabel(s.nowFn().UTC())
	if err := s.storage.IncrementWeekly(ctx, key.ID, week, class); err != nil {
		return fmt.Errorf("weekly increment failed: %w", err)
	}
	return nil
}

func secondsToNextHour(now time.Time) int {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return int(next.Sub(now).Seconds())
}
