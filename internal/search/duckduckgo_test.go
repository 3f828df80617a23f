package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
)

const resultsPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">Go Documentation</a>
  <div class="result__snippet">Official Go documentation and guides.</div>
</div>
<div class="result">
  <a class="result__a" href="https://pkg.go.dev/">Go Packages</a>
  <div class="result__snippet">Package index.</div>
</div>
<div class="result">
  <a class="result__a" href="javascript:void(0)">Junk</a>
</div>
</body></html>`

func newTestSearchService(serverURL string) *Service {
	return NewService(&common.SearchConfig{
		BaseURL:    serverURL,
		Timeout:    5 * time.Second,
		MaxResults: 10,
	}, common.GetLogger())
}

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "golang docs", r.PostForm.Get("q"))
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	results, err := newTestSearchService(server.URL).Search(context.Background(), "golang docs", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Go Documentation", results[0].Title)
	assert.Equal(t, "https://go.dev/doc/", results[0].URL)
	assert.Equal(t, "Official Go documentation and guides.", results[0].Snippet)
	assert.Equal(t, "https://pkg.go.dev/", results[1].URL)
}

func TestSearchHonorsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(resultsPage))
	}))
	defer server.Close()

	results, err := newTestSearchService(server.URL).Search(context.Background(), "golang", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	_, err := newTestSearchService("http://unused").Search(context.Background(), "  ", 5)
	assert.Error(t, err)
}

func TestSearchProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestSearchService(server.URL).Search(context.Background(), "golang", 5)
	assert.Error(t, err)
}

func TestResolveRedirect(t *testing.T) {
	assert.Equal(t, "https://go.dev/doc/", resolveRedirect("//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F"))
	assert.Equal(t, "https://pkg.go.dev/", resolveRedirect("https://pkg.go.dev/"))
	assert.Equal(t, "", resolveRedirect("javascript:void(0)"))
}
