// -----------------------------------------------------------------------
// Result Cache - LRU with stale-while-revalidate semantics
// -----------------------------------------------------------------------

package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

type entry struct {
	result   *models.PeelResult
	storedAt time.Time
	size     int64
}

// Service is the process-wide peel-result cache. Entries are fresh for
// FreshTTL, then served stale for StaleTTL while a single background
// revalidation refreshes them. Eviction is LRU bounded by entry count and
// total bytes.
type Service struct {
	mu           sync.Mutex
	lru          *lru.Cache[string, *entry]
	totalBytes   int64
	maxBytes     int64
	freshTTL     time.Duration
	staleTTL     time.Duration
	revalidating map[string]struct{}
	logger       arbor.ILogger
}

// NewService creates the cache from configuration
func NewService(config *common.CacheConfig, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		maxBytes:     config.MaxBytes,
		freshTTL:     config.FreshTTL,
		staleTTL:     config.StaleTTL,
		revalidating: make(map[string]struct{}),
		logger:       logger,
	}
	c, err := lru.NewWithEvict[string, *entry](config.MaxEntries, func(key string, e *entry) {
		s.totalBytes -= e.size
	})
	if err != nil {
		return nil, err
	}
	s.lru = c
	return s, nil
}

func entrySize(r *models.PeelResult) int64 {
	size := int64(len(r.Content) + len(r.Title) + len(r.Screenshot) + 512)
	for _, l := range r.Links {
		size += int64(len(l))
	}
	return size
}

// Lookup returns the cached result for a key, or nil on miss. Entries past
// both windows are dropped and reported as a miss.
func (s *Service) Lookup(key string) *interfaces.CacheLookup {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(key)
	if !ok {
		return nil
	}
	age := time.Since(e.storedAt)
	if age > s.freshTTL+s.staleTTL {
		s.lru.Remove(key)
		return nil
	}
	return &interfaces.CacheLookup{
		Result: e.result,
		Stale:  age > s.freshTTL,
		AgeSec: int(age.Seconds()),
	}
}

// ClaimRevalidation atomically claims the single revalidation slot for a
// key. Returns true only to the first caller; the claim persists until
// ReleaseRevalidation.
func (s *Service) ClaimRevalidation(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, inFlight := s.revalidating[key]; inFlight {
		return false
	}
	s.revalidating[key] = struct{}{}
	return true
}

// ReleaseRevalidation releases the revalidation slot after the refresh
// completes or fails.
func (s *Service) ReleaseRevalidation(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.revalidating, key)
}

// Store inserts or replaces the entry for a key, evicting LRU entries
// until the byte cap is satisfied.
func (s *Service) Store(key string, result *models.PeelResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := entrySize(result)
	if size > s.maxBytes {
		return
	}
	// Remove first so the evict callback reclaims the old entry's bytes;
	// Add on an existing key would silently replace without eviction.
	s.lru.Remove(key)

	s.lru.Add(key, &entry{result: result, storedAt: time.Now(), size: size})
	s.totalBytes += size

	for s.totalBytes > s.maxBytes && s.lru.Len() > 1 {
		if _, _, ok := s.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Len returns the number of live entries
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}
