package interfaces

import "github.com/webpeel/webpeel/internal/models"

// CacheLookup is the result of a cache probe
type CacheLookup struct {
	Result *models.PeelResult
	Stale  bool
	AgeSec int
}

// ResultCache is the stale-while-revalidate peel-result cache. Lookup never
// blocks on an in-flight revalidation; at most one revalidation runs per key.
type ResultCache interface {
	// Lookup returns the cached result, or nil on miss. Stale is true when
	// the entry is past its fresh window but within the staleness window.
	Lookup(key string) *CacheLookup

	// ClaimRevalidation atomically claims the single revalidation slot for
	// a key. Returns true only to the first caller.
	ClaimRevalidation(key string) bool

	// ReleaseRevalidation releases the slot after the refresh completes
	ReleaseRevalidation(key string)

	// Store inserts or replaces the entry for a key
	Store(key string, result *models.PeelResult)

	// Len returns the number of live entries
	Len() int
}
