// -----------------------------------------------------------------------
// Watch Handler - /v1/watch CRUD
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// WatchHandler serves watch registration and management
type WatchHandler struct {
	watches interfaces.WatchService
	logger  arbor.ILogger
}

// NewWatchHandler creates the watch handler
func NewWatchHandler(watches interfaces.WatchService, logger arbor.ILogger) *WatchHandler {
	return &WatchHandler{watches: watches, logger: logger}
}

type watchRequest struct {
	URL                  string `json:"url" validate:"required"`
	WebhookURL           string `json:"webhookUrl,omitempty"`
	CheckIntervalMinutes int    `json:"checkIntervalMinutes,omitempty"`
	Selector             string `json:"selector,omitempty"`
}

// HandleWatches serves POST (create) and GET (list) /v1/watch
func (h *WatchHandler) HandleWatches(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	key := APIKeyFrom(r.Context())
	accountID := ""
	if key != nil {
		accountID = key.UserID
	}

	if r.Method == http.MethodGet {
		watches, err := h.watches.List(r.Context(), accountID)
		if err != nil {
			WriteAPIError(w, r, http.StatusInternalServerError, ErrInternal, err.Error(), "")
			return
		}
		if watches == nil {
			watches = []*models.Watch{}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"watches": watches, "count": len(watches)})
		return
	}

	var req watchRequest
	if !DecodeBody(w, r, &req) {
		return
	}
	watch := &models.Watch{
		AccountID:            accountID,
		URL:                  req.URL,
		WebhookURL:           req.WebhookURL,
		CheckIntervalMinutes: req.CheckIntervalMinutes,
		Selector:             req.Selector,
	}
	if err := h.watches.Create(r.Context(), watch); err != nil {
		if strings.Contains(err.Error(), "invalid watch url") {
			WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidURL, err.Error(), "")
			return
		}
		WriteAPIError(w, r, http.StatusInternalServerError, ErrInternal, err.Error(), "")
		return
	}
	WriteJSON(w, http.StatusCreated, watch)
}

// HandleWatch serves GET and DELETE /v1/watch/{id}
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/watch/")
	if id == "" {
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "watch id is required", "")
		return
	}

	watch, err := h.watches.Get(r.Context(), id)
	if err != nil || watch == nil {
		WriteAPIError(w, r, http.StatusNotFound, ErrNotFound, "watch not found", "")
		return
	}
	if key := APIKeyFrom(r.Context()); key != nil && watch.AccountID != "" && watch.AccountID != key.UserID {
		WriteAPIError(w, r, http.StatusNotFound, ErrNotFound, "watch not found", "")
		return
	}

	if r.Method == http.MethodDelete {
		if err := h.watches.Delete(r.Context(), id); err != nil {
			WriteAPIError(w, r, http.StatusInternalServerError, ErrInternal, err.Error(), "")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
		return
	}
	WriteJSON(w, http.StatusOK, watch)
}
