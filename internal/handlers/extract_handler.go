// -----------------------------------------------------------------------
// Extract Handler - POST /v1/extract
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// ExtractHandler serves structured extraction requests
type ExtractHandler struct {
	peel   interfaces.PeelService
	logger arbor.ILogger
}

// NewExtractHandler creates the extract handler
func NewExtractHandler(peel interfaces.PeelService, logger arbor.ILogger) *ExtractHandler {
	return &ExtractHandler{peel: peel, logger: logger}
}

type extractRequest struct {
	URL       string                 `json:"url" validate:"required"`
	Schema    map[string]interface{} `json:"schema,omitempty"`
	Prompt    string                 `json:"prompt,omitempty"`
	Selectors map[string]string      `json:"selectors,omitempty"`
	Render    bool                   `json:"render,omitempty"`
	Stealth   bool                   `json:"stealth,omitempty"`
	Timeout   int                    `json:"timeout,omitempty"`
}

// HandleExtract serves POST /v1/extract
func (h *ExtractHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req extractRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	opts := &models.RequestOptions{
		Format:  models.FormatClean,
		Render:  req.Render,
		Stealth: req.Stealth,
		Timeout: req.Timeout,
		Extract: &models.ExtractSpec{
			Schema:    req.Schema,
			Prompt:    req.Prompt,
			Selectors: req.Selectors,
		},
	}
	opts = ApplySoftLimit(w, r, opts)

	result, err := h.peel.Peel(r.Context(), req.URL, opts)
	if err != nil {
		WritePeelError(w, r, req.URL, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"url":       result.URL,
		"extracted": result.Extracted,
		"method":    result.Method,
		"elapsed":   result.Elapsed,
	})
}
