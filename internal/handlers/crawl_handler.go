// -----------------------------------------------------------------------
// Crawl Handler - POST /v1/crawl (async) and GET /v1/map
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// CrawlHandler serves same-domain crawls and link maps
type CrawlHandler struct {
	peel   interfaces.PeelService
	jobs   interfaces.JobService
	logger arbor.ILogger
}

// NewCrawlHandler creates the crawl handler
func NewCrawlHandler(peel interfaces.PeelService, jobs interfaces.JobService, logger arbor.ILogger) *CrawlHandler {
	return &CrawlHandler{peel: peel, jobs: jobs, logger: logger}
}

type crawlRequest struct {
	URL        string `json:"url" validate:"required"`
	MaxDepth   int    `json:"maxDepth,omitempty"`
	MaxPages   int    `json:"maxPages,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
	models.RequestOptions
}

// HandleCrawl serves POST /v1/crawl, returning 202 with the job ID. The
// crawl runs in the background; poll /v1/jobs/{id} for pages.
func (h *CrawlHandler) HandleCrawl(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req crawlRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	opts := ApplySoftLimit(w, r, &req.RequestOptions)
	job := h.jobs.CreateJob(models.JobTypeCrawl, req.WebhookURL)

	go h.runCrawl(job.ID, req.URL, req.MaxDepth, req.MaxPages, opts)

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":  job.ID,
		"url": "/v1/jobs/" + job.ID,
	})
}

func (h *CrawlHandler) runCrawl(jobID, url string, maxDepth, maxPages int, opts *models.RequestOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	h.jobs.UpdateJob(jobID, func(j *models.Job) {
		j.MarkRunning()
	})

	pages, err := h.peel.Crawl(ctx, url, maxDepth, maxPages, opts)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", url).Msg("Crawl job failed")
		h.jobs.UpdateJob(jobID, func(j *models.Job) {
			if !j.IsTerminal() {
				j.MarkFailed(err.Error())
			}
		})
		return
	}

	results := make([]interface{}, 0, len(pages))
	for _, p := range pages {
		results = append(results, p)
	}
	h.jobs.UpdateJob(jobID, func(j *models.Job) {
		if j.IsTerminal() {
			return
		}
		j.Total = len(pages)
		j.Completed = len(pages)
		j.Data = map[string]interface{}{"pages": results}
		j.MarkCompleted()
	})
}

// HandleMap serves GET /v1/map?url=, returning the page's link inventory
func (h *CrawlHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest,
			"url query parameter is required", "")
		return
	}

	siteMap, err := h.peel.Map(r.Context(), url)
	if err != nil {
		WritePeelError(w, r, url, err)
		return
	}
	WriteJSON(w, http.StatusOK, siteMap)
}
