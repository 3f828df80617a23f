// -----------------------------------------------------------------------
// Search Handler - GET /v1/search
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
)

// SearchHandler serves web search queries
type SearchHandler struct {
	search interfaces.SearchService
	logger arbor.ILogger
}

// NewSearchHandler creates the search handler
func NewSearchHandler(search interfaces.SearchService, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// HandleSearch serves GET /v1/search?q=...&limit=...
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "q query parameter is required", "")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.search.Search(r.Context(), query, limit)
	if err != nil {
		WriteAPIError(w, r, http.StatusBadGateway, ErrInternal, "search failed: "+err.Error(), "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}
