package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
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

// fakePeeler returns canned results keyed by URL
type fakePeeler struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	delay time.Duration
}

func (f *fakePeeler) Peel(_ context.Context, url string, _ *models.RequestOptions) (*models.PeelResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	return &models.PeelResult{URL: url, Content: "content for " + url}, nil
}

func (f *fakePeeler) PeelBatch(_ context.Context, _ []string, _ *models.RequestOptions) []*models.PeelResult {
	return nil
}

func (f *fakePeeler) Crawl(_ context.Context, _ string, _, _ int, _ *models.RequestOptions) ([]*models.CrawlPage, error) {
	return nil, nil
}

func (f *fakePeeler) Map(_ context.Context, _ string) (*models.SiteMap, error) {
	return nil, nil
}

func (f *fakePeeler) DeepFetch(_ context.Context, _, _ string, _ int) (map[string]interface{}, error) {
	return nil, nil
}

var _ interfaces.PeelService = (*fakePeeler)(nil)

func newTestJobService(peel interfaces.PeelService) *Service {
	cfg := common.DefaultConfig().Jobs
	return NewService(peel, &cfg, common.GetLogger())
}

func TestJobLifecycle(t *testing.T) {
	svc := newTestJobService(&fakePeeler{})

	job := svc.CreateJob(models.JobTypeBatch, "")
	assert.True(t, strings.HasPrefix(job.ID, "job_"))
	assert.Equal(t, models.JobPending, job.Status)

	got, ok := svc.GetJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, got.ID)

	_, ok = svc.GetJob("job_missing")
	assert.False(t, ok)
}

func TestUpdateJobLastWriteWins(t *testing.T) {
	svc := newTestJobService(&fakePeeler{})
	job := svc.CreateJob(models.JobTypeBatch, "")

	updated, ok := svc.UpdateJob(job.ID, func(j *models.Job) { j.Completed = 3 })
	require.True(t, ok)
	assert.Equal(t, 3, updated.Completed)

	updated, _ = svc.UpdateJob(job.ID, func(j *models.Job) { j.Completed = 7 })
	assert.Equal(t, 7, updated.Completed)
}

func TestCancelJobOnlyNonTerminal(t *testing.T) {
	svc := newTestJobService(&fakePeeler{})

	job := svc.CreateJob(models.JobTypeBatch, "")
	assert.True(t, svc.CancelJob(job.ID))

	got, _ := svc.GetJob(job.ID)
	assert.Equal(t, models.JobCancelled, got.Status)
	require.NotNil(t, got.ExpiresAt)

	// Already terminal
	assert.False(t, svc.CancelJob(job.ID))
	assert.False(t, svc.CancelJob("job_missing"))
}

func TestRunBatchCompletesWithPerURLErrors(t *testing.T) {
	peeler := &fakePeeler{fail: map[string]error{
		"https://b.example.com": errors.New("connection refused"),
	}}
	svc := newTestJobService(peeler)

	job := svc.CreateJob(models.JobTypeBatch, "")
	urls := []string{"https://a.example.com", "https://b.example.com", "https://c.example.com"}
	svc.RunBatch(context.Background(), job, urls, &models.RequestOptions{})

	got, ok := svc.GetJob(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 3, got.Completed)

	results := got.Data["results"].([]interface{})
	require.Len(t, results, 3)
	failed := results[1].(*models.PeelResult)
	assert.Equal(t, "https://b.example.com", failed.URL)
	assert.Equal(t, "connection refused", failed.Error)
	okResult := results[0].(*models.PeelResult)
	assert.Empty(t, okResult.Error)
}

func TestRunBatchDeliversWebhooks(t *testing.T) {
	var mu sync.Mutex
	var events []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event models.WebhookEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		events = append(events, event.Event)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestJobService(&fakePeeler{})
	job := svc.CreateJob(models.JobTypeBatch, server.URL)
	svc.RunBatch(context.Background(), job, []string{"https://a.example.com"}, &models.RequestOptions{})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "started", events[0])
	assert.Contains(t, events, "page")
	assert.Equal(t, "completed", events[len(events)-1])
}

func TestRunBatchSurvivesWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestJobService(&fakePeeler{})
	job := svc.CreateJob(models.JobTypeBatch, server.URL)
	svc.RunBatch(context.Background(), job, []string{"https://a.example.com"}, &models.RequestOptions{})

	got, _ := svc.GetJob(job.ID)
	assert.Equal(t, models.JobCompleted, got.Status)
}

func TestRunBatchStopsOnCancellation(t *testing.T) {
	peeler := &fakePeeler{delay: 50 * time.Millisecond}
	svc := newTestJobService(peeler)

	job := svc.CreateJob(models.JobTypeBatch, "")
	urls := make([]string, 40)
	for i := range urls {
		urls[i] = "https://example.com/page"
	}

	done := make(chan struct{})
	go func() {
		svc.RunBatch(context.Background(), job, urls, &models.RequestOptions{})
		close(done)
	}()

	time.Sleep(75 * time.Millisecond)
	require.True(t, svc.CancelJob(job.ID))
	<-done

	got, _ := svc.GetJob(job.ID)
	assert.Equal(t, models.JobCancelled, got.Status)
	peeler.mu.Lock()
	assert.Less(t, len(peeler.calls), len(urls))
	peeler.mu.Unlock()
}

func TestListJobsFiltersAndSorts(t *testing.T) {
	svc := newTestJobService(&fakePeeler{})

	batch := svc.CreateJob(models.JobTypeBatch, "")
	svc.UpdateJob(batch.ID, func(j *models.Job) {
		j.CreatedAt = time.Now().Add(-time.Hour)
	})
	crawl := svc.CreateJob(models.JobTypeCrawl, "")

	all := svc.ListJobs(interfaces.JobFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, crawl.ID, all[0].ID)

	batches := svc.ListJobs(interfaces.JobFilter{Type: models.JobTypeBatch})
	require.Len(t, batches, 1)
	assert.Equal(t, batch.ID, batches[0].ID)

	limited := svc.ListJobs(interfaces.JobFilter{Limit: 1})
	assert.Len(t, limited, 1)
}

func TestPurgeExpired(t *testing.T) {
	svc := newTestJobService(&fakePeeler{})

	expired := svc.CreateJob(models.JobTypeBatch, "")
	svc.UpdateJob(expired.ID, func(j *models.Job) {
		j.MarkCompleted()
		past := time.Now().Add(-time.Minute)
		j.ExpiresAt = &past
	})
	fresh := svc.CreateJob(models.JobTypeBatch, "")
	svc.UpdateJob(fresh.ID, func(j *models.Job) { j.MarkCompleted() })
	pending := svc.CreateJob(models.JobTypeBatch, "")

	removed := svc.PurgeExpired()
	assert.Equal(t, 1, removed)

	_, ok := svc.GetJob(expired.ID)
	assert.False(t, ok)
	_, ok = svc.GetJob(fresh.ID)
	assert.True(t, ok)
	_, ok = svc.GetJob(pending.ID)
	assert.True(t, ok)
}
