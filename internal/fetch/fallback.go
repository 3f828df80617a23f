// -----------------------------------------------------------------------
// Fallback Fetchers - worker proxy, rotating client profiles, Google cache
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// CFWorkerFetcher proxies the fetch through a Cloudflare worker so the
// request originates from a clean edge IP.
type CFWorkerFetcher struct {
	workerURL string
	token     string
	client    *http.Client
	logger    arbor.ILogger
}

// NewCFWorkerFetcher creates the worker proxy strategy. Returns nil when
// no worker URL is configured.
func NewCFWorkerFetcher(config *common.FetchConfig, logger arbor.ILogger) *CFWorkerFetcher {
	if config.CFWorkerURL == "" {
		return nil
	}
	return &CFWorkerFetcher{
		workerURL: config.CFWorkerURL,
		token:     config.CFWorkerToken,
		client:    &http.Client{Timeout: config.RequestTimeout},
		logger:    logger,
	}
}

// Name returns the method label for this strategy
func (f *CFWorkerFetcher) Name() models.FetchMethod {
	return models.MethodCFWorker
}

// Fetch asks the worker to retrieve the target URL
func (f *CFWorkerFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	proxied := f.workerURL + "?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxied, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker proxy fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("worker proxy returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := &models.FetchResult{
		URL:         target,
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Method:      models.MethodCFWorker,
		Edge:        resp.Header.Get("CF-Ray"),
	}
	result.ChallengeDetected = IsChallengePage(result.HTML)
	return result, nil
}

// clientProfile is one browser identity used by the rotating fetcher
type clientProfile struct {
	userAgent      string
	acceptLanguage string
	secChUA        string
}

var clientProfiles = []clientProfile{
	{
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		acceptLanguage: "en-US,en;q=0.9",
		secChUA:        `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
	},
	{
		userAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		acceptLanguage: "en-US,en;q=0.8",
		secChUA:        "",
	},
	{
		userAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		acceptLanguage: "en-GB,en;q=0.7",
		secChUA:        "",
	},
}

// PeelTLSFetcher retries the plain HTTP fetch under rotated client
// profiles, changing the headers bot-detection fingerprints key on.
type PeelTLSFetcher struct {
	client *http.Client
	logger arbor.ILogger
}

// NewPeelTLSFetcher creates the profile-rotating strategy. Returns nil
// when disabled in configuration.
func NewPeelTLSFetcher(config *common.FetchConfig, logger arbor.ILogger) *PeelTLSFetcher {
	if !config.PeelTLSEnabled {
		return nil
	}
	return &PeelTLSFetcher{
		client: &http.Client{Timeout: config.RequestTimeout},
		logger: logger,
	}
}

// Name returns the method label for this strategy
func (f *PeelTLSFetcher) Name() models.FetchMethod {
	return models.MethodPeelTLS
}

// Fetch tries each client profile in turn until one returns a
// non-challenge page.
func (f *PeelTLSFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	var lastErr error
	for i, profile := range clientProfiles {
		result, err := f.fetchWithProfile(ctx, target, profile)
		if err != nil {
			lastErr = err
			continue
		}
		if !result.ChallengeDetected {
			f.logger.Debug().Int("profile", i).Str("url", target).Msg("Profile rotation succeeded")
			return result, nil
		}
		lastErr = fmt.Errorf("profile %d served a challenge page", i)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("all client profiles exhausted: %w", lastErr)
}

func (f *PeelTLSFetcher) fetchWithProfile(ctx context.Context, target string, profile clientProfile) (*models.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", profile.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", profile.acceptLanguage)
	if profile.secChUA != "" {
		req.Header.Set("Sec-CH-UA", profile.secChUA)
		req.Header.Set("Sec-CH-UA-Mobile", "?0")
		req.Header.Set("Sec-CH-UA-Platform", `"Windows"`)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("profile fetch returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := &models.FetchResult{
		URL:         target,
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Method:      models.MethodPeelTLS,
	}
	result.ChallengeDetected = IsChallengePage(result.HTML)
	return result, nil
}

// GoogleCacheFetcher scrapes Google's cached copy of a page as a last
// resort mirror.
type GoogleCacheFetcher struct {
	client    *http.Client
	userAgent string
	logger    arbor.ILogger
}

// NewGoogleCacheFetcher creates the cached-mirror strategy
func NewGoogleCacheFetcher(config *common.FetchConfig, logger arbor.ILogger) *GoogleCacheFetcher {
	return &GoogleCacheFetcher{
		client:    &http.Client{Timeout: config.RequestTimeout},
		userAgent: config.UserAgent,
		logger:    logger,
	}
}

// Name returns the method label for this strategy
func (f *GoogleCacheFetcher) Name() models.FetchMethod {
	return models.MethodGoogleCache
}

// Fetch retrieves the cached copy with strict validation: the response
// must carry the cache banner and a plausible body, and must not be a
// JS-challenge redirect or a "did not match any documents" page.
func (f *GoogleCacheFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	cacheURL := "https://webcache.googleusercontent.com/search?q=cache:" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cacheURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google cache fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google cache returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	html := string(body)
	lower := strings.ToLower(html)
	switch {
	case len(html) < 1024:
		return nil, fmt.Errorf("google cache body too short")
	case strings.Contains(lower, "did not match any documents"):
		return nil, fmt.Errorf("url not present in google cache")
	case strings.Contains(lower, "enablejs") || strings.Contains(lower, "unusual traffic"):
		return nil, fmt.Errorf("google cache served a challenge redirect")
	case !strings.Contains(lower, "cache") && !strings.Contains(lower, "snapshot"):
		return nil, fmt.Errorf("google cache banner missing")
	}

	return &models.FetchResult{
		URL:         target,
		HTML:        html,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Method:      models.MethodGoogleCache,
	}, nil
}
