package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// QuotaService enforces weekly and burst limits per API key.
//
// Check never increments weekly usage for over-quota requests; burst usage
// is recorded unconditionally. Rollover credits are computed once per week
// per key on first access and never change within that week.
type QuotaService interface {
	// Check evaluates limits for one request and records burst usage.
	// A hard-blocked decision means the caller must reject with 429; a
	// soft-limited decision means the caller proceeds with downgraded
	// options.
	Check(ctx context.Context, key *models.APIKey, class models.UsageClass) (*models.QuotaDecision, error)

	// Commit records a successfully served request against the weekly
	// counters. No-op when the decision was soft-limited or charged to
	// extra usage.
	Commit(ctx context.Context, key *models.APIKey, class models.UsageClass, decision *models.QuotaDecision) error
}
