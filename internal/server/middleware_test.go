package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/webpeel/webpeel/internal/models"
)

func TestClassify(t *testing.T) {
	s := &Server{}

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   models.UsageClass
	}{
		{"search endpoint", http.MethodGet, "/v1/search?q=go", "", models.UsageSearch},
		{"plain get", http.MethodGet, "/v1/fetch?url=https://example.com", "", models.UsageBasic},
		{"stealth get", http.MethodGet, "/v1/fetch?url=https://example.com&stealth=true", "", models.UsageStealth},
		{"plain post", http.MethodPost, "/v1/fetch", `{"url":"https://example.com"}`, models.UsageBasic},
		{"stealth post", http.MethodPost, "/v1/fetch", `{"url":"https://example.com","stealth":true}`, models.UsageStealth},
		{"garbage body", http.MethodPost, "/v1/fetch", `not json`, models.UsageBasic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			r := httptest.NewRequest(tt.method, tt.target, body)
			assert.Equal(t, tt.want, s.classify(r))
		})
	}
}

func TestClassifyRestoresBody(t *testing.T) {
	s := &Server{}
	payload := `{"url":"https://example.com","stealth":true}`
	r := httptest.NewRequest(http.MethodPost, "/v1/fetch", strings.NewReader(payload))

	s.classify(r)

	// Handlers must still be able to decode the body afterwards
	buf := make([]byte, len(payload))
	n, _ := r.Body.Read(buf)
	assert.Equal(t, payload, string(buf[:n]))
}

func TestWriteQuotaHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	resetsAt := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	writeQuotaHeaders(w, &models.QuotaDecision{
		Burst:  models.BurstInfo{Limit: 25, Count: 3, Remaining: 22, ResetsIn: 1800},
		Weekly: models.WeeklyInfo{Limit: 125, Used: 40, Remaining: 85, PercentUsed: 32.0, ResetsAt: resetsAt},
	})

	h := w.Header()
	assert.Equal(t, "25", h.Get("X-Burst-Limit"))
	assert.Equal(t, "3", h.Get("X-Burst-Used"))
	assert.Equal(t, "22", h.Get("X-Burst-Remaining"))
	assert.Equal(t, "125", h.Get("X-Weekly-Limit"))
	assert.Equal(t, "40", h.Get("X-Weekly-Used"))
	assert.Equal(t, "85", h.Get("X-Weekly-Remaining"))
	assert.Equal(t, "32.0", h.Get("X-Weekly-Percent"))
	assert.Equal(t, "2026-08-24T00:00:00Z", h.Get("X-Weekly-Resets-At"))

	// Extra-usage headers only appear when enabled
	assert.Empty(t, h.Get("X-Extra-Usage-Enabled"))
}

func TestWriteQuotaHeadersExtraUsage(t *testing.T) {
	w := httptest.NewRecorder()

	writeQuotaHeaders(w, &models.QuotaDecision{
		Extra: models.ExtraUsage{Enabled: true, Balance: 4.5, Spent: 0.51, SpendingLimit: 20},
	})

	h := w.Header()
	assert.Equal(t, "true", h.Get("X-Extra-Usage-Enabled"))
	assert.Equal(t, "4.500", h.Get("X-Extra-Usage-Balance"))
	assert.Equal(t, "0.510", h.Get("X-Extra-Usage-Spent"))
	assert.Equal(t, "20.00", h.Get("X-Extra-Usage-Limit"))
}

func TestPublicPath(t *testing.T) {
	assert.True(t, publicPath("/health"))
	assert.True(t, publicPath("/openapi.yaml"))
	assert.False(t, publicPath("/v1/fetch"))
	assert.False(t, publicPath("/v1/watch"))
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	assert.Equal(t, http.StatusAccepted, rw.statusCode)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
