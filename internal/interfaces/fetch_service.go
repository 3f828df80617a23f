package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// FetchStrategy is one way of turning a URL into HTML. Strategies register
// with the escalation engine; the engine owns ordering and fallback policy.
type FetchStrategy interface {
	// Name returns the method label this strategy reports in results
	Name() models.FetchMethod

	// Fetch retrieves the URL. Implementations honor ctx cancellation and
	// return an error for anything the escalation engine should move past.
	Fetch(ctx context.Context, url string, opts *models.RequestOptions) (*models.FetchResult, error)
}

// FetchHooks is the optional plugin surface consulted by the escalation
// engine. The zero-value no-hook path behaves as pure base escalation.
type FetchHooks interface {
	// RecommendMethod returns a starting-method override for the host, or
	// "" for no opinion.
	RecommendMethod(url string) models.FetchMethod

	// RecordOutcome records a fetch success or failure for the host
	RecordOutcome(url string, method models.FetchMethod, success bool)

	// RaceEnabled reports whether a simple/browser race is allowed for
	// this request.
	RaceEnabled(opts *models.RequestOptions) bool
}

// SmartFetcher is the public entry into the tiered fetch pipeline
type SmartFetcher interface {
	SmartFetch(ctx context.Context, url string, opts *models.RequestOptions) (*models.FetchResult, error)
}

// DomainIntelligence tracks per-host fetch outcomes and recommends a
// starting method. Counter updates are atomic and may be lossy under
// contention.
type DomainIntelligence interface {
	Recommend(url string) models.FetchMethod
	Record(url string, method models.FetchMethod, success bool)
	Flush(ctx context.Context) error
}
