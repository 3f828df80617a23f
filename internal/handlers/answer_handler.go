// -----------------------------------------------------------------------
// Answer Handler - POST /v1/answer (SSE) and GET /v1/answer/quick
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/heuristics"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// AnswerHandler answers questions grounded in fetched page content. The
// streaming endpoint uses the LLM; the quick endpoint is pure heuristics.
type AnswerHandler struct {
	peel   interfaces.PeelService
	search interfaces.SearchService
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewAnswerHandler creates the answer handler
func NewAnswerHandler(peel interfaces.PeelService, search interfaces.SearchService, llm interfaces.LLMService, logger arbor.ILogger) *AnswerHandler {
	return &AnswerHandler{peel: peel, search: search, llm: llm, logger: logger}
}

type answerRequest struct {
	Question string `json:"question" validate:"required"`
	URL      string `json:"url,omitempty"`
}

// gatherContent peels the named URL, or searches and peels the top hits
func (h *AnswerHandler) gatherContent(r *http.Request, question, url string) (string, []string, error) {
	if url != "" {
		result, err := h.peel.Peel(r.Context(), url, &models.RequestOptions{Format: models.FormatClean})
		if err != nil {
			return "", nil, err
		}
		return result.Content, []string{result.URL}, nil
	}

	hits, err := h.search.Search(r.Context(), question, 3)
	if err != nil {
		return "", nil, err
	}
	if len(hits) == 0 {
		return "", nil, fmt.Errorf("no search results for question")
	}
	urls := make([]string, 0, len(hits))
	for _, hit := range hits {
		urls = append(urls, hit.URL)
	}

	var sources []string
	var combined strings.Builder
	sourceBudget := 4000
	for _, result := range h.peel.PeelBatch(r.Context(), urls, &models.RequestOptions{Format: models.FormatClean, MaxTokens: &sourceBudget}) {
		if result.Error != "" {
			continue
		}
		sources = append(sources, result.URL)
		combined.WriteString(result.Content)
		combined.WriteString("\n\n")
	}
	if combined.Len() == 0 {
		return "", nil, fmt.Errorf("could not fetch any search result")
	}
	return combined.String(), sources, nil
}

// HandleAnswer serves POST /v1/answer as an SSE stream of
// {type: chunk|done|error} events.
func (h *AnswerHandler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req answerRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	if h.llm == nil || !h.llm.IsConfigured() {
		WriteAPIError(w, r, http.StatusServiceUnavailable, ErrLLMAuth,
			"no LLM provider configured", "Set ANTHROPIC_API_KEY or use /v1/answer/quick")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteAPIError(w, r, http.StatusInternalServerError, ErrInternal, "streaming unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(event map[string]interface{}) {
		data, _ := json.Marshal(event)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	content, sources, err := h.gatherContent(r, req.Question, req.URL)
	if err != nil {
		emit(map[string]interface{}{"type": "error", "error": err.Error()})
		return
	}

	answer, err := h.llm.AnswerStream(r.Context(), req.Question, content, func(chunk string) {
		emit(map[string]interface{}{"type": "chunk", "text": chunk})
	})
	if err != nil {
		emit(map[string]interface{}{"type": "error", "error": err.Error()})
		return
	}
	emit(map[string]interface{}{"type": "done", "answer": answer, "sources": sources})
}

// HandleQuickAnswer serves GET /v1/answer/quick?q=...&url=... using the
// BM25 heuristic ranker, no LLM involved.
func (h *AnswerHandler) HandleQuickAnswer(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	question := r.URL.Query().Get("q")
	if question == "" {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "q query parameter is required", "")
		return
	}

	content, sources, err := h.gatherContent(r, question, r.URL.Query().Get("url"))
	if err != nil {
		WriteAPIError(w, r, http.StatusBadGateway, ErrInternal, err.Error(), "")
		return
	}

	passages, confidence := heuristics.QuickAnswer(content, question, heuristics.DefaultPassages)
	response := map[string]interface{}{
		"question":   question,
		"passages":   passages,
		"confidence": confidence,
		"sources":    sources,
	}
	if len(passages) > 0 {
		response["answer"] = passages[0].Text
	}
	WriteJSON(w, http.StatusOK, response)
}
