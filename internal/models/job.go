// -----------------------------------------------------------------------
// Job - async job lifecycle for batch/crawl/agent/deep-fetch work
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobType identifies the kind of async work a job performs
type JobType string

const (
	JobTypeBatch     JobType = "batch"
	JobTypeCrawl     JobType = "crawl"
	JobTypeAgent     JobType = "agent"
	JobTypeDeepFetch JobType = "deepFetch"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobTTL is how long terminal jobs are retained before purge
const JobTTL = 24 * time.Hour

// Job tracks one unit of async work through its lifecycle
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Total       int                    `json:"total,omitempty"`
	Completed   int                    `json:"completed,omitempty"`
	CreditsUsed int                    `json:"creditsUsed,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	WebhookURL  string                 `json:"webhookUrl,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	ExpiresAt   *time.Time             `json:"expiresAt,omitempty"`
}

// IsTerminal reports whether the job has reached a final state
func (j *Job) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// MarkRunning transitions the job from pending to running
func (j *Job) MarkRunning() error {
	if j.Status != JobPending {
		return fmt.Errorf("cannot start job in status %s", j.Status)
	}
	j.Status = JobRunning
	return nil
}

// MarkCompleted transitions the job to completed and stamps expiry
func (j *Job) MarkCompleted() {
	j.Status = JobCompleted
	j.stampExpiry()
}

// MarkFailed transitions the job to failed with a message
func (j *Job) MarkFailed(msg string) {
	j.Status = JobFailed
	j.Error = msg
	j.stampExpiry()
}

// MarkCancelled transitions the job to cancelled. Only pending and running
// jobs can be cancelled.
func (j *Job) MarkCancelled() error {
	if j.IsTerminal() {
		return fmt.Errorf("cannot cancel job in status %s", j.Status)
	}
	j.Status = JobCancelled
	j.stampExpiry()
	return nil
}

func (j *Job) stampExpiry() {
	expires := time.Now().Add(JobTTL)
	j.ExpiresAt = &expires
}

// WebhookEvent is the payload delivered to a job's webhook URL
type WebhookEvent struct {
	Event     string                 `json:"event"` // started, page, completed, failed, cancelled
	JobID     string                 `json:"jobId"`
	Type      JobType                `json:"type"`
	Status    JobStatus              `json:"status"`
	Total     int                    `json:"total,omitempty"`
	Completed int                    `json:"completed,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}
