// -----------------------------------------------------------------------
// Job Handler - /v1/jobs listing, status and cancellation
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// JobHandler serves the generic job endpoints
type JobHandler struct {
	jobs   interfaces.JobService
	logger arbor.ILogger
}

// NewJobHandler creates the job handler
func NewJobHandler(jobs interfaces.JobService, logger arbor.ILogger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

// HandleJobs serves GET /v1/jobs with optional type/status/limit filters
func (h *JobHandler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	filter := interfaces.JobFilter{
		Type:   models.JobType(r.URL.Query().Get("type")),
		Status: models.JobStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	jobs := h.jobs.ListJobs(filter)
	if jobs == nil {
		jobs = []*models.Job{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs, "count": len(jobs)})
}

// HandleJob serves GET and DELETE /v1/jobs/{id}
func (h *JobHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
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
