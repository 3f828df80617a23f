package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/models"
)

// stubPeelService returns a canned result and records the options it saw
type stubPeelService struct {
	result *models.PeelResult
	err    error
	opts   *models.RequestOptions
}

func (s *stubPeelService) Peel(_ context.Context, url string, opts *models.RequestOptions) (*models.PeelResult, error) {
	s.opts = opts
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.URL = url
	return &out, nil
}

func (s *stubPeelService) PeelBatch(_ context.Context, urls []string, _ *models.RequestOptions) []*models.PeelResult {
	return make([]*models.PeelResult, len(urls))
}

func (s *stubPeelService) Crawl(context.Context, string, int, int, *models.RequestOptions) ([]*models.CrawlPage, error) {
	return nil, nil
}

func (s *stubPeelService) Map(context.Context, string) (*models.SiteMap, error) {
	return nil, nil
}

func (s *stubPeelService) DeepFetch(context.Context, string, string, int) (map[string]interface{}, error) {
	return nil, nil
}

func TestOptionsFromQueryMaxTokens(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/fetch?url=https://example.com", nil)
	assert.Nil(t, optionsFromQuery(r).MaxTokens)

	r = httptest.NewRequest(http.MethodGet, "/v1/fetch?url=https://example.com&maxTokens=50", nil)
	opts := optionsFromQuery(r)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 50, *opts.MaxTokens)

	// An explicit zero survives parsing
	r = httptest.NewRequest(http.MethodGet, "/v1/fetch?url=https://example.com&maxTokens=0", nil)
	opts = optionsFromQuery(r)
	require.NotNil(t, opts.MaxTokens)
	assert.Equal(t, 0, *opts.MaxTokens)
}

func TestFetchBodyMaxTokensPresence(t *testing.T) {
	var req fetchRequest
	require.NoError(t, json.Unmarshal([]byte(`{"url":"https://example.com","maxTokens":0}`), &req))
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 0, *req.MaxTokens)

	var absent fetchRequest
	require.NoError(t, json.Unmarshal([]byte(`{"url":"https://example.com"}`), &absent))
	assert.Nil(t, absent.MaxTokens)
}

func TestServePeelBillsChallengeBypass(t *testing.T) {
	stub := &stubPeelService{result: &models.PeelResult{
		Content:         "ok",
		Method:          models.MethodStealth,
		ChallengeSolved: true,
	}}
	ctx := WithUsageEscalation(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/v1/fetch?url=https://example.com", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	ServePeel(w, r, stub, "https://example.com", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UsageCaptcha, EscalatedUsage(ctx))
}

func TestServePeelCachedBypassNotRebilled(t *testing.T) {
	stub := &stubPeelService{result: &models.PeelResult{
		Content:         "ok",
		Method:          models.MethodCached,
		ChallengeSolved: true,
	}}
	ctx := WithUsageEscalation(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/v1/fetch?url=https://example.com", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	ServePeel(w, r, stub, "https://example.com", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.UsageClass(""), EscalatedUsage(ctx))
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}
