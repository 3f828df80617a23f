// -----------------------------------------------------------------------
// Batch Handler - POST /v1/batch/scrape and job status/cancel
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

const maxBatchURLs = 100

// BatchHandler serves async batch scrape jobs
type BatchHandler struct {
	jobs   interfaces.JobService
	logger arbor.ILogger
}

// NewBatchHandler creates the batch handler
func NewBatchHandler(jobs interfaces.JobService, logger arbor.ILogger) *BatchHandler {
	return &BatchHandler{jobs: jobs, logger: logger}
}

type batchRequest struct {
	URLs       []string `json:"urls" validate:"required,min=1"`
	WebhookURL string   `json:"webhookUrl,omitempty"`
	models.RequestOptions
}

// HandleBatch serves POST /v1/batch/scrape, returning 202 with the job ID
func (h *BatchHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req batchRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if len(req.URLs) > maxBatchURLs {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest,
			"too many urls in batch", "Split the batch into chunks of 100 or fewer")
		return
	}

	opts := &req.RequestOptions
	opts = ApplySoftLimit(w, r, opts)

	job := h.jobs.CreateJob(models.JobTypeBatch, req.WebhookURL)
	urls := append([]string{}, req.URLs...)

	// Budget covers the whole batch, not one page
	timeout := time.Duration(opts.EffectiveTimeoutMs()) * time.Millisecond * time.Duration(len(urls))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		h.jobs.RunBatch(ctx, job, urls, opts)
	}()

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":    job.ID,
		"url":   "/v1/batch/scrape/" + job.ID,
		"total": len(urls),
	})
}

// HandleBatchJob serves GET and DELETE /v1/batch/scrape/{id}
func (h *BatchHandler) HandleBatchJob(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/batch/scrape/")
	if id == "" {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "job id is required", "")
		return
	}

	if r.Method == http.MethodDelete {
		if !h.jobs.CancelJob(id) {
			WriteAPIError(w, r, http.StatusNotFound, ErrNotFound,
				"job not found or already finished", "")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(models.JobCancelled)})
		return
	}

	job, ok := h.jobs.GetJob(id)
	if !ok {
		WriteAPIError(w, r, http.StatusNotFound, ErrNotFound, "job not found", "")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
