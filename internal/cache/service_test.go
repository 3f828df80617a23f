package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

func newTestCache(t *testing.T, freshTTL, staleTTL time.Duration) *Service {
	t.Helper()
	svc, err := NewService(&common.CacheConfig{
		Enabled:    true,
		MaxEntries: 10,
		MaxBytes:   1 << 20,
		FreshTTL:   freshTTL,
		StaleTTL:   staleTTL,
	}, common.GetLogger())
	require.NoError(t, err)
	return svc
}

func TestLookupMiss(t *testing.T) {
	svc := newTestCache(t, time.Minute, time.Hour)
	assert.Nil(t, svc.Lookup("absent"))
}

func TestStoreAndLookupFresh(t *testing.T) {
	svc := newTestCache(t, time.Minute, time.Hour)
	svc.Store("k", &models.PeelResult{URL: "https://example.com", Content: "hello"})

	got := svc.Lookup("k")
	require.NotNil(t, got)
	assert.False(t, got.Stale)
	assert.Equal(t, "hello", got.Result.Content)
}

func TestStaleWindow(t *testing.T) {
	svc := newTestCache(t, 10*time.Millisecond, time.Hour)
	svc.Store("k", &models.PeelResult{Content: "v"})

	time.Sleep(30 * time.Millisecond)

	got := svc.Lookup("k")
	require.NotNil(t, got)
	assert.True(t, got.Stale)
}

func TestExpiredBeyondStaleWindow(t *testing.T) {
	svc := newTestCache(t, 5*time.Millisecond, 5*time.Millisecond)
	svc.Store("k", &models.PeelResult{Content: "v"})

	time.Sleep(30 * time.Millisecond)

	assert.Nil(t, svc.Lookup("k"))
	assert.Equal(t, 0, svc.Len())
}

func TestClaimRevalidationSingleFlight(t *testing.T) {
	svc := newTestCache(t, time.Minute, time.Hour)

	assert.True(t, svc.ClaimRevalidation("k"))
	assert.False(t, svc.ClaimRevalidation("k"))

	svc.ReleaseRevalidation("k")
	assert.True(t, svc.ClaimRevalidation("k"))
}

func TestClaimRevalidationPerKey(t *testing.T) {
	svc := newTestCache(t, time.Minute, time.Hour)

	assert.True(t, svc.ClaimRevalidation("a"))
	assert.True(t, svc.ClaimRevalidation("b"))
}

func TestEntryCountEviction(t *testing.T) {
	svc := newTestCache(t, time.Minute, time.Hour)

	for i := 0; i < 20; i++ {
		svc.Store(fmt.Sprintf("k%d", i), &models.PeelResult{Content: "v"})
	}
	assert.LessOrEqual(t, svc.Len(), 10)

	// Oldest entries are gone, newest survive
	assert.Nil(t, svc.Lookup("k0"))
	assert.NotNil(t, svc.Lookup("k19"))
}

func TestByteCapEviction(t *testing.T) {
	svc, err := NewService(&common.CacheConfig{
		MaxEntries: 10,
		MaxBytes:   4096,
		FreshTTL:   time.Minute,
		StaleTTL:   time.Hour,
	}, common.GetLogger())
	require.NoError(t, err)

	big := make([]byte, 1500)
	for i := range big {
		big[i] = 'x'
	}
	for i := 0; i < 5; i++ {
		svc.Store(fmt.Sprintf("k%d", i), &models.PeelResult{Content: string(big)})
	}
	// Roughly 2KB per entry against a 4KB cap: only the newest survive
	assert.LessOrEqual(t, svc.Len(), 2)
	assert.NotNil(t, svc.Lookup("k4"))
}

func TestOversizeEntryRejected(t *testing.T) {
	svc, err := NewService(&common.CacheConfig{
		MaxEntries: 10,
		MaxBytes:   1024,
		FreshTTL:   time.Minute,
		StaleTTL:   time.Hour,
	}, common.GetLogger())
	require.NoError(t, err)

	big := make([]byte, 4096)
	svc.Store("huge", &models.PeelResult{Content: string(big)})
	assert.Nil(t, svc.Lookup("huge"))
}

func TestCacheKeyGranularity(t *testing.T) {
	md := &models.RequestOptions{Format: models.FormatMarkdown}
	txt := &models.RequestOptions{Format: models.FormatText}

	assert.NotEqual(t, md.CacheKey("https://x.com/a"), txt.CacheKey("https://x.com/a"))

	// Options that do not change the rendered output do not change the key
	a := &models.RequestOptions{Format: models.FormatMarkdown, Timeout: 5000}
	b := &models.RequestOptions{Format: models.FormatMarkdown, Timeout: 60000}
	assert.Equal(t, a.CacheKey("https://x.com/a"), b.CacheKey("https://x.com/a"))
}

func TestCacheKeyCoversOutputShapingOptions(t *testing.T) {
	base := (&models.RequestOptions{}).CacheKey("https://x.com/a")

	raw := &models.RequestOptions{Raw: true}
	assert.NotEqual(t, base, raw.CacheKey("https://x.com/a"))

	excl := &models.RequestOptions{Exclude: []string{".sidebar", ".ads"}}
	assert.NotEqual(t, base, excl.CacheKey("https://x.com/a"))

	// An explicit zero cap is a different rendering than no cap
	zero := 0
	capped := &models.RequestOptions{MaxTokens: &zero}
	assert.NotEqual(t, base, capped.CacheKey("https://x.com/a"))
}
