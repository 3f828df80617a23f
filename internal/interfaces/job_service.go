package interfaces

import (
	"context"

	"github.com/webpeel/webpeel/internal/models"
)

// JobFilter narrows a job listing
type JobFilter struct {
	Type   models.JobType
	Status models.JobStatus
	Limit  int
}

// JobService manages the async job lifecycle and webhook notifications.
// The store is process-local; durability across restarts is not guaranteed.
type JobService interface {
	CreateJob(jobType models.JobType, webhookURL string) *models.Job
	GetJob(id string) (*models.Job, bool)
	UpdateJob(id string, patch func(*models.Job)) (*models.Job, bool)
	CancelJob(id string) bool
	ListJobs(filter JobFilter) []*models.Job

	// RunBatch executes a batch job over the URL list with a bounded
	// worker pool, emitting webhook events as the job progresses.
	RunBatch(ctx context.Context, job *models.Job, urls []string, opts *models.RequestOptions)

	// PurgeExpired removes terminal jobs past their expiry and returns
	// the number removed.
	PurgeExpired() int
}

// WatchService manages persistent URL watches and their periodic checks
type WatchService interface {
	Create(ctx context.Context, watch *models.Watch) error
	Get(ctx context.Context, id string) (*models.Watch, error)
	List(ctx context.Context, accountID string) ([]*models.Watch, error)
	Delete(ctx context.Context, id string) error

	// Check runs one watch cycle: fetch, compare fingerprints, diff,
	// persist, and deliver the change webhook.
	Check(ctx context.Context, id string) error

	// Start launches the scheduler loop; Stop halts it
	Start() error
	Stop()
}
