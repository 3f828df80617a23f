// -----------------------------------------------------------------------
// Server Routes - endpoint registration
// -----------------------------------------------------------------------

package server

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.yaml
var openapiSpec []byte

// setupRoutes registers all HTTP endpoints
func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("/health", s.app.StatusHandler.HandleHealth)
	s.router.HandleFunc("/openapi.yaml", s.handleOpenAPI)

	// Content
	s.router.HandleFunc("/v1/fetch", s.app.FetchHandler.HandleFetch)
	s.router.HandleFunc("/v1/search", s.app.SearchHandler.HandleSearch)
	s.router.HandleFunc("/v1/extract", s.app.ExtractHandler.HandleExtract)
	s.router.HandleFunc("/v1/screenshot", s.app.ScreenshotHandler.HandleScreenshot)
	s.router.HandleFunc("/v1/screenshot/design-analysis", s.app.ScreenshotHandler.HandleDesignAnalysis)

	// Crawl
	s.router.HandleFunc("/v1/crawl", s.app.CrawlHandler.HandleCrawl)
	s.router.HandleFunc("/v1/map", s.app.CrawlHandler.HandleMap)

	// Answers
	s.router.HandleFunc("/v1/answer", s.app.AnswerHandler.HandleAnswer)
	s.router.HandleFunc("/v1/answer/quick", s.app.AnswerHandler.HandleQuickAnswer)

	// Batch jobs
	s.router.HandleFunc("/v1/batch/scrape", s.app.BatchHandler.HandleBatch)
	s.router.HandleFunc("/v1/batch/scrape/", s.app.BatchHandler.HandleBatchJob)
	s.router.HandleFunc("/v1/jobs", s.app.JobHandler.HandleJobs)
	s.router.HandleFunc("/v1/jobs/", s.app.JobHandler.HandleJob)

	// Watches
	s.router.HandleFunc("/v1/watch", s.app.WatchHandler.HandleWatches)
	s.router.HandleFunc("/v1/watch/", s.app.WatchHandler.HandleWatch)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(openapiSpec)
}
