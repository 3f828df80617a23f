// -----------------------------------------------------------------------
// Fetch Handler - GET/POST /v1/fetch
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// FetchHandler serves the single-URL fetch endpoint
type FetchHandler struct {
	peel   interfaces.PeelService
	logger arbor.ILogger
}

// NewFetchHandler creates the fetch handler
func NewFetchHandler(peel interfaces.PeelService, logger arbor.ILogger) *FetchHandler {
	return &FetchHandler{peel: peel, logger: logger}
}

// fetchRequest is the POST body for /v1/fetch
type fetchRequest struct {
	URL string `json:"url" validate:"required"`
	models.RequestOptions
}

// HandleFetch serves GET and POST /v1/fetch
func (h *FetchHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var url string
	var opts *models.RequestOptions
	if r.Method == http.MethodGet {
		url = r.URL.Query().Get("url")
		if url == "" {
			WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidRequest, "url query parameter is required", "")
			return
		}
		opts = optionsFromQuery(r)
	} else {
		var req fetchRequest
		if !DecodeBody(w, r, &req) {
			return
		}
		url = req.URL
		opts = &req.RequestOptions
	}

	opts = ApplySoftLimit(w, r, opts)
	ServePeel(w, r, h.peel, url, opts)
}

// ServePeel runs a peel and writes the result with cache headers. Shared
// by the fetch, extract and screenshot endpoints.
func ServePeel(w http.ResponseWriter, r *http.Request, peel interfaces.PeelService, url string, opts *models.RequestOptions) {
	result, err := peel.Peel(r.Context(), url, opts)
	if err != nil {
		WritePeelError(w, r, url, err)
		return
	}

	// A cached serve did no new solving work and bills at its base class
	if result.ChallengeSolved && result.Method != models.MethodCached {
		EscalateUsage(r.Context(), models.UsageCaptcha)
	}

	if result.Method == models.MethodCached {
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("X-Cache-Age", strconv.Itoa(result.CacheAgeSec))
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	WriteJSON(w, http.StatusOK, result)
}

// WritePeelError maps a peel failure onto the error envelope
func WritePeelError(w http.ResponseWriter, r *http.Request, url string, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "context deadline exceeded"):
		WriteAPIError(w, r, http.StatusGatewayTimeout, ErrTimeout,
			"fetch timed out for "+url, "Increase the timeout option or try render=false")
	case strings.Contains(msg, "invalid url") || strings.Contains(msg, "unsupported scheme") ||
		strings.Contains(msg, "url is required") || strings.Contains(msg, "no host") ||
		strings.Contains(msg, "exceeds"):
		WriteAPIError(w, r, http.StatusBadRequest, ErrInvalidURL, msg, "")
	case strings.Contains(msg, "all fetch strategies failed"):
		WriteAPIError(w, r, http.StatusBadGateway, ErrExtractionFailed,
			"could not fetch "+url+": "+msg, "The site may be blocking automated access")
	default:
		WriteAPIError(w, r, http.StatusInternalServerError, ErrInternal, msg, "")
	}
}

// optionsFromQuery builds request options from GET query parameters
func optionsFromQuery(r *http.Request) *models.RequestOptions {
	q := r.URL.Query()
	opts := &models.RequestOptions{
		Format:   models.Format(q.Get("format")),
		Selector: q.Get("selector"),
	}
	opts.Render = queryBool(q.Get("render"))
	opts.Stealth = queryBool(q.Get("stealth"))
	opts.Images = queryBool(q.Get("images"))
	opts.Raw = queryBool(q.Get("raw"))
	opts.ChangeTracking = queryBool(q.Get("changeTracking"))
	if v := q.Get("maxTokens"); v != "" {
		// An explicit zero is meaningful: it returns only the notice line
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.MaxTokens = &n
		}
	}
	if v := q.Get("timeout"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Timeout = n
		}
	}
	if v := q.Get("wait"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Wait = n
		}
	}
	if v := q.Get("includeTags"); v != "" {
		opts.IncludeTags = strings.Split(v, ",")
	}
	if v := q.Get("excludeTags"); v != "" {
		opts.ExcludeTags = strings.Split(v, ",")
	}
	return opts
}

func queryBool(v string) bool {
	return v == "true" || v == "1"
}
