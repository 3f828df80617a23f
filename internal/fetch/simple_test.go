package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

func testFetchConfig() *common.FetchConfig {
	return &common.FetchConfig{
		UserAgent:      "Mozilla/5.0 (test)",
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
		MaxRedirects:   10,
		RetryAttempts:  3,
		RetryBackoff:   5 * time.Millisecond,
		PerHostRate:    100,
		PerHostBurst:   100,
	}
}

func newTestSimpleFetcher() *SimpleFetcher {
	logger := common.GetLogger()
	return NewSimpleFetcher(testFetchConfig(), NewPDFExtractor(logger), logger)
}

func TestSimpleFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><h1>Hello</h1></body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	result, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, models.MethodSimple, result.Method)
	assert.Contains(t, result.HTML, "<h1>Hello</h1>")
	assert.False(t, result.ChallengeDetected)
}

func TestSimpleFetchFollowsRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("<html><body>landed</body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	result, err := f.Fetch(context.Background(), server.URL+"/start", nil)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "landed")
}

func TestSimpleFetch4xxNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html><body>not found</body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	result, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, 404, result.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSimpleFetch5xxRetriedThenFails(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	_, err := f.Fetch(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSimpleFetch5xxRecoversOnRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html><body>recovered</body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	result, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "recovered")
}

func TestSimpleFetchCustomHeadersAndCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom-value", r.Header.Get("X-Custom"))
		assert.Contains(t, r.Header.Get("Cookie"), "session=abc")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	opts := &models.RequestOptions{
		Headers: map[string]string{"X-Custom": "custom-value"},
		Cookies: []string{"session=abc"},
	}
	_, err := f.Fetch(context.Background(), server.URL, opts)
	require.NoError(t, err)
}

func TestSimpleFetchChallengeFlagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Just a moment...</title></head><body></body></html>"))
	}))
	defer server.Close()

	f := newTestSimpleFetcher()
	result, err := f.Fetch(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.True(t, result.ChallengeDetected)
}

func TestSimpleFetchContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := newTestSimpleFetcher()
	_, err := f.Fetch(ctx, server.URL, nil)
	assert.Error(t, err)
}
