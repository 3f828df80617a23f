// -----------------------------------------------------------------------
// Status Handler - health and service info
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"time"

	"github.com/webpeel/webpeel/internal/common"
)

// StatusHandler serves the unauthenticated health endpoint
type StatusHandler struct {
	startedAt time.Time
}

// NewStatusHandler creates the status handler
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{startedAt: time.Now()}
}

// HandleHealth serves GET /health
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"version":   common.GetVersion(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
