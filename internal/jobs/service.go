// -----------------------------------------------------------------------
// Job Service - async job lifecycle, batch execution, webhook delivery
// -----------------------------------------------------------------------

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// Service keeps jobs in a process-local map. Terminal jobs are retained
// for models.JobTTL and swept by PurgeExpired.
type Service struct {
	mu     sync.RWMutex
	jobs   map[string]*models.Job
	peel   interfaces.PeelService
	config *common.JobsConfig
	logger arbor.ILogger
	client *http.Client
}

// NewService creates the job service
func NewService(peel interfaces.PeelService, config *common.JobsConfig, logger arbor.ILogger) *Service {
	timeout := config.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		jobs:   make(map[string]*models.Job),
		peel:   peel,
		config: config,
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// CreateJob registers a new pending job
func (s *Service) CreateJob(jobType models.JobType, webhookURL string) *models.Job {
	job := &models.Job{
		ID:         common.NewJobID(),
		Type:       jobType,
		Status:     models.JobPending,
		WebhookURL: webhookURL,
		CreatedAt:  time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info().Str("job_id", job.ID).Str("type", string(jobType)).Msg("Job created")
	return job
}

// GetJob returns a copy of the job so callers cannot race the store
func (s *Service) GetJob(id string) (*models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// UpdateJob applies a patch function under the store lock and returns the
// updated copy. Last write wins.
func (s *Service) UpdateJob(id string, patch func(*models.Job)) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	patch(job)
	copied := *job
	return &copied, true
}

// CancelJob cancels a pending or running job. Workers observe the status
// change and stop between units of work.
func (s *Service) CancelJob(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	if err := job.MarkCancelled(); err != nil {
		s.mu.Unlock()
		return false
	}
	copied := *job
	s.mu.Unlock()

	s.logger.Info().Str("job_id", id).Msg("Job cancelled")
	s.deliverWebhook(&copied, "cancelled", nil)
	return true
}

// ListJobs returns jobs matching the filter, newest first
func (s *Service) ListJobs(filter interfaces.JobFilter) []*models.Job {
	s.mu.RLock()
	var out []*models.Job
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		copied := *job
		out = append(out, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// RunBatch executes a batch job with a bounded worker pool. Per-URL
// failures land in the result slot; only cancellation stops the run early.
func (s *Service) RunBatch(ctx context.Context, job *models.Job, urls []string, opts *models.RequestOptions) {
	started, ok := s.UpdateJob(job.ID, func(j *models.Job) {
		if err := j.MarkRunning(); err != nil {
			return
		}
		j.Total = len(urls)
	})
	if !ok || started.Status != models.JobRunning {
		return
	}
	s.deliverWebhook(started, "started", nil)

	workers := s.config.Workers
	if workers <= 0 {
		workers = 5
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	results := make([]*models.PeelResult, len(urls))
	work := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Drain the channel on cancellation so the dispatcher never
			// blocks on a send with no receiver
			for idx := range work {
				if s.isCancelled(job.ID) {
					continue
				}
				url := urls[idx]
				result, err := s.peel.Peel(ctx, url, opts)
				if err != nil {
					result = &models.PeelResult{URL: url, Error: err.Error()}
				}
				results[idx] = result

				updated, _ := s.UpdateJob(job.ID, func(j *models.Job) {
					j.Completed++
				})
				if updated != nil {
					s.deliverWebhook(updated, "page", map[string]interface{}{"url": url})
				}
			}
		}()
	}

	for i := range urls {
		if ctx.Err() != nil {
			break
		}
		work <- i
	}
	close(work)
	wg.Wait()

	if s.isCancelled(job.ID) {
		return
	}

	payload := make([]interface{}, 0, len(results))
	for i, r := range results {
		if r == nil {
			r = &models.PeelResult{URL: urls[i], Error: "not processed"}
		}
		payload = append(payload, r)
	}

	final, _ := s.UpdateJob(job.ID, func(j *models.Job) {
		j.Data = map[string]interface{}{"results": payload}
		if ctx.Err() != nil {
			j.MarkFailed(ctx.Err().Error())
			return
		}
		j.MarkCompleted()
	})
	if final == nil {
		return
	}
	if final.Status == models.JobFailed {
		s.deliverWebhook(final, "failed", nil)
		return
	}
	s.logger.Info().
		Str("job_id", job.ID).
		Int("urls", len(urls)).
		Msg("Batch job completed")
	s.deliverWebhook(final, "completed", nil)
}

// PurgeExpired removes terminal jobs past their expiry
func (s *Service) PurgeExpired() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.IsTerminal() && job.ExpiresAt != nil && now.After(*job.ExpiresAt) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Purged expired jobs")
	}
	return removed
}

func (s *Service) isCancelled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return ok && job.Status == models.JobCancelled
}

// deliverWebhook posts an event to the job's webhook URL. Delivery
// failures are logged and swallowed; they never affect the job.
func (s *Service) deliverWebhook(job *models.Job, event string, data map[string]interface{}) {
	if job.WebhookURL == "" {
		return
	}
	payload := models.WebhookEvent{
		Event:     event,
		JobID:     job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Total:     job.Total,
		Completed: job.Completed,
		Data:      data,
		Error:     job.Error,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Webhook payload marshal failed")
		return
	}

	req, err := http.NewRequest(http.MethodPost, job.WebhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Webhook request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Str("event", event).
			Msg("Webhook delivery failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("event", event).
			Int("status", resp.StatusCode).
			Msg("Webhook delivery rejected")
	}
}
