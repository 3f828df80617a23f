// -----------------------------------------------------------------------
// Screenshot Handler - POST /v1/screenshot and design analysis
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// ScreenshotHandler captures page screenshots through the browser tier
type ScreenshotHandler struct {
	peel   interfaces.PeelService
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewScreenshotHandler creates the screenshot handler
func NewScreenshotHandler(peel interfaces.PeelService, llm interfaces.LLMService, logger arbor.ILogger) *ScreenshotHandler {
	return &ScreenshotHandler{peel: peel, llm: llm, logger: logger}
}

type screenshotRequest struct {
	URL      string `json:"url" validate:"required"`
	FullPage bool   `json:"fullPage,omitempty"`
	Wait     int    `json:"wait,omitempty"`
	Timeout  int    `json:"timeout,omitempty"`
}

func (h *ScreenshotHandler) capture(w http.ResponseWriter, r *http.Request, req *screenshotRequest) *models.PeelResult {
	opts := &models.RequestOptions{
		Render:             true,
		Screenshot:         true,
		ScreenshotFullPage: req.FullPage,
		Wait:               req.Wait,
		Timeout:            req.Timeout,
	}
	// A screenshot always needs the browser, so the soft limit is surfaced
	// in the headers instead of stripping render options. A hard-blocked
	// key never gets here.
	if decision := DecisionFrom(r.Context()); decision != nil && decision.SoftLimited {
		w.Header().Set("X-Soft-Limited", "true")
	}
	result, err := h.peel.Peel(r.Context(), req.URL, opts)
	if err != nil {
		WritePeelError(w, r, req.URL, err)
		return nil
	}
	if result.ChallengeSolved {
		EscalateUsage(r.Context(), models.UsageCaptcha)
	}
	if result.Screenshot == "" {
		WriteAPIError(w, r, http.StatusBadGateway, ErrExtractionFailed,
			"no screenshot captured", "The browser tier may be unavailable")
		return nil
	}
	return result
}

// HandleScreenshot serves POST /v1/screenshot
func (h *ScreenshotHandler) HandleScreenshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req screenshotRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	result := h.capture(w, r, &req)
	if result == nil {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"url":        result.URL,
		"screenshot": result.Screenshot,
		"title":      result.Title,
		"elapsed":    result.Elapsed,
	})
}

// HandleDesignAnalysis serves POST /v1/screenshot/design-analysis,
// pairing the capture with an LLM critique of the page content.
func (h *ScreenshotHandler) HandleDesignAnalysis(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if h.llm == nil || !h.llm.IsConfigured() {
		WriteAPIError(w, r, http.StatusServiceUnavailable, ErrLLMAuth,
			"no LLM provider configured", "Set ANTHROPIC_API_KEY to enable design analysis")
		return
	}
	var req screenshotRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	result := h.capture(w, r, &req)
	if result == nil {
		return
	}

	analysis, err := h.llm.Answer(r.Context(),
		"Analyze the design and structure of this page: layout, hierarchy, readability, calls to action. Be specific and concise.",
		result.Content)
	if err != nil {
		WriteAPIError(w, r, http.StatusBadGateway, ErrInternal, "design analysis failed: "+err.Error(), "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"url":        result.URL,
		"screenshot": result.Screenshot,
		"analysis":   analysis,
	})
}
