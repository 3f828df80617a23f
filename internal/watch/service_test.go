package watch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

type memWatchStore struct {
	mu      sync.Mutex
	watches map[string]*models.Watch
}

func newMemWatchStore() *memWatchStore {
	return &memWatchStore{watches: make(map[string]*models.Watch)}
}

func (m *memWatchStore) StoreWatch(_ context.Context, w *models.Watch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *w
	m.watches[w.ID] = &copied
	return nil
}

func (m *memWatchStore) GetWatch(_ context.Context, id string) (*models.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.watches[id]
	if !ok {
		return nil, errors.New("watch not found")
	}
	copied := *w
	return &copied, nil
}

func (m *memWatchStore) GetWatchesByAccount(_ context.Context, accountID string) ([]*models.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Watch
	for _, w := range m.watches {
		if w.AccountID == accountID {
			copied := *w
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memWatchStore) GetDueWatches(_ context.Context, limit int) ([]*models.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []*models.Watch
	for _, w := range m.watches {
		if w.Due(now) {
			copied := *w
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].LastCheckedAt == nil {
			return true
		}
		if out[b].LastCheckedAt == nil {
			return false
		}
		return out[a].LastCheckedAt.Before(*out[b].LastCheckedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memWatchStore) DeleteWatch(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watches, id)
	return nil
}

func (m *memWatchStore) CountWatches(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches), nil
}

// watchPeeler returns a canned result per URL, or an error
type watchPeeler struct {
	result *models.PeelResult
	err    error
}

func (p *watchPeeler) Peel(_ context.Context, url string, _ *models.RequestOptions) (*models.PeelResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	r := *p.result
	r.URL = url
	return &r, nil
}

func (p *watchPeeler) PeelBatch(_ context.Context, _ []string, _ *models.RequestOptions) []*models.PeelResult {
	return nil
}
func (p *watchPeeler) Crawl(_ context.Context, _ string, _, _ int, _ *models.RequestOptions) ([]*models.CrawlPage, error) {
	return nil, nil
}
func (p *watchPeeler) Map(_ context.Context, _ string) (*models.SiteMap, error) { return nil, nil }
func (p *watchPeeler) DeepFetch(_ context.Context, _, _ string, _ int) (map[string]interface{}, error) {
	return nil, nil
}

type memTracker struct {
	snapshots map[string]*models.Snapshot
}

func (t *memTracker) Track(_, _, _ string) (*models.TrackResult, error) { return nil, nil }
func (t *memTracker) GetSnapshot(url string) (*models.Snapshot, error) {
	if snap, ok := t.snapshots[url]; ok {
		return snap, nil
	}
	return nil, nil
}
func (t *memTracker) ClearSnapshots(_ string) (int, error) { return 0, nil }

var (
	_ interfaces.WatchStorage  = (*memWatchStore)(nil)
	_ interfaces.PeelService   = (*watchPeeler)(nil)
	_ interfaces.ChangeTracker = (*memTracker)(nil)
)

func newTestWatchService(store *memWatchStore, peeler *watchPeeler, tracker *memTracker) *Service {
	cfg := common.DefaultConfig().Watch
	if tracker == nil {
		tracker = &memTracker{snapshots: map[string]*models.Snapshot{}}
	}
	return NewService(store, peeler, tracker, &cfg, common.GetLogger())
}

func TestCreateAppliesIntervalFloor(t *testing.T) {
	store := newMemWatchStore()
	svc := newTestWatchService(store, &watchPeeler{}, nil)

	watch := &models.Watch{URL: "example.com/pricing", CheckIntervalMinutes: 1}
	require.NoError(t, svc.Create(context.Background(), watch))

	assert.True(t, strings.HasPrefix(watch.ID, "watch_"))
	assert.Equal(t, "https://example.com/pricing", watch.URL)
	assert.Equal(t, 5, watch.CheckIntervalMinutes)
	assert.Equal(t, models.WatchActive, watch.Status)
}

func TestCreateRejectsInvalidURL(t *testing.T) {
	svc := newTestWatchService(newMemWatchStore(), &watchPeeler{}, nil)
	err := svc.Create(context.Background(), &models.Watch{URL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestCheckFirstRunStoresFingerprint(t *testing.T) {
	store := newMemWatchStore()
	peeler := &watchPeeler{result: &models.PeelResult{
		Content:     "Initial page content",
		Fingerprint: "aaaaaaaaaaaaaaaa",
	}}
	svc := newTestWatchService(store, peeler, nil)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10}
	require.NoError(t, svc.Create(context.Background(), watch))
	require.NoError(t, svc.Check(context.Background(), watch.ID))

	got, err := store.GetWatch(context.Background(), watch.ID)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", got.LastFingerprint)
	assert.NotNil(t, got.LastCheckedAt)
	assert.Nil(t, got.LastChangedAt)
	assert.Zero(t, got.ChangeCount)
}

func TestCheckDetectsChangeAndNotifies(t *testing.T) {
	var mu sync.Mutex
	var received *changeNotification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event changeNotification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		received = &event
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newMemWatchStore()
	tracker := &memTracker{snapshots: map[string]*models.Snapshot{
		"https://example.com": {Content: "Old paragraph with enough text here.\n\nShared paragraph stays put always."},
	}}
	peeler := &watchPeeler{result: &models.PeelResult{
		Content:     "New paragraph with enough text here.\n\nShared paragraph stays put always.",
		Fingerprint: "bbbbbbbbbbbbbbbb",
	}}
	svc := newTestWatchService(store, peeler, tracker)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10, WebhookURL: server.URL}
	require.NoError(t, svc.Create(context.Background(), watch))
	watch.LastFingerprint = "aaaaaaaaaaaaaaaa"
	require.NoError(t, store.StoreWatch(context.Background(), watch))

	require.NoError(t, svc.Check(context.Background(), watch.ID))

	got, _ := store.GetWatch(context.Background(), watch.ID)
	assert.Equal(t, "bbbbbbbbbbbbbbbb", got.LastFingerprint)
	assert.Equal(t, 1, got.ChangeCount)
	assert.NotNil(t, got.LastChangedAt)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, received)
	assert.Equal(t, "watch.changed", received.Event)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", received.PreviousFingerprint)
	require.NotNil(t, received.Diff)
	assert.Contains(t, received.Diff.Added, "New paragraph with enough text here.")
	assert.Contains(t, received.Diff.Removed, "Old paragraph with enough text here.")
}

func TestCheckNoChangeOnlyUpdatesCheckedAt(t *testing.T) {
	store := newMemWatchStore()
	peeler := &watchPeeler{result: &models.PeelResult{
		Content:     "Stable content",
		Fingerprint: "aaaaaaaaaaaaaaaa",
	}}
	svc := newTestWatchService(store, peeler, nil)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10}
	require.NoError(t, svc.Create(context.Background(), watch))
	watch.LastFingerprint = "aaaaaaaaaaaaaaaa"
	require.NoError(t, store.StoreWatch(context.Background(), watch))

	require.NoError(t, svc.Check(context.Background(), watch.ID))

	got, _ := store.GetWatch(context.Background(), watch.ID)
	assert.Zero(t, got.ChangeCount)
	assert.Nil(t, got.LastChangedAt)
	assert.NotNil(t, got.LastCheckedAt)
}

func TestCheckErrorFlipsStatusAndTruncatesMessage(t *testing.T) {
	store := newMemWatchStore()
	peeler := &watchPeeler{err: errors.New(strings.Repeat("e", 600))}
	svc := newTestWatchService(store, peeler, nil)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10}
	require.NoError(t, svc.Create(context.Background(), watch))

	err := svc.Check(context.Background(), watch.ID)
	assert.Error(t, err)

	got, _ := store.GetWatch(context.Background(), watch.ID)
	assert.Equal(t, models.WatchError, got.Status)
	assert.Len(t, got.ErrorMessage, 500)
	assert.NotNil(t, got.LastCheckedAt)
}

func TestCheckRecoversFromErrorStatus(t *testing.T) {
	store := newMemWatchStore()
	peeler := &watchPeeler{result: &models.PeelResult{
		Content:     "Recovered content",
		Fingerprint: "cccccccccccccccc",
	}}
	svc := newTestWatchService(store, peeler, nil)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10}
	require.NoError(t, svc.Create(context.Background(), watch))
	watch.Status = models.WatchError
	watch.ErrorMessage = "old failure"
	require.NoError(t, store.StoreWatch(context.Background(), watch))

	require.NoError(t, svc.Check(context.Background(), watch.ID))

	got, _ := store.GetWatch(context.Background(), watch.ID)
	assert.Equal(t, models.WatchActive, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestDeleteWatch(t *testing.T) {
	store := newMemWatchStore()
	svc := newTestWatchService(store, &watchPeeler{}, nil)

	watch := &models.Watch{URL: "https://example.com", CheckIntervalMinutes: 10}
	require.NoError(t, svc.Create(context.Background(), watch))
	require.NoError(t, svc.Delete(context.Background(), watch.ID))

	_, err := store.GetWatch(context.Background(), watch.ID)
	assert.Error(t, err)
}
