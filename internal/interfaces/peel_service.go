package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// PeelService composes fetch, extraction, caching and change tracking into
// the single fetch-and-clean operation the rest of the system builds on.
type PeelService interface {
	// Peel fetches one URL and returns its cleaned, structured content
	Peel(ctx context.Context, url string, opts *models.RequestOptions) (*models.PeelResult, error)

	// PeelBatch peels many URLs with bounded concurrency. Results are
	// indexed by input position; per-URL failures carry Error and never
	// abort the batch.
	PeelBatch(ctx context.Context, urls []string, opts *models.RequestOptions) []*models.PeelResult

	// Crawl walks a site breadth-first up to maxDepth/maxPages
	Crawl(ctx context.Context, url string, maxDepth, maxPages int, opts *models.RequestOptions) ([]*models.CrawlPage, error)

	// Map returns the deduplicated, sorted link inventory of a page
	Map(ctx context.Context, url string) (*models.SiteMap, error)

	// DeepFetch peels a page plus its most relevant linked pages and
	// aggregates key points, entities and figures for a query.
	DeepFetch(ctx context.Context, url, query string, maxPages int) (map[string]interface{}, error)
}

// ChangeTracker persists per-URL snapshots and computes diffs between
// successive observations.
type ChangeTracker interface {
	Track(url, content, fingerprint string) (*models.TrackResult, error)
	GetSnapshot(url string) (*models.Snapshot, error)
	ClearSnapshots(urlPattern string) (int, error)
}
