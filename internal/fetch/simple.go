// -----------------------------------------------------------------------
// Simple Fetcher - raw HTTP GET with browser-grade headers
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// SimpleFetcher performs plain HTTP GETs with browser-grade headers,
// redirect following, charset decoding, retry with backoff, and per-host
// politeness limiting.
type SimpleFetcher struct {
	client   *http.Client
	config   *common.FetchConfig
	logger   arbor.ILogger
	pdf      *PDFExtractor
	limiters sync.Map // host -> *rate.Limiter
}

// NewSimpleFetcher creates the simple HTTP strategy
func NewSimpleFetcher(config *common.FetchConfig, pdf *PDFExtractor, logger arbor.ILogger) *SimpleFetcher {
	client := &http.Client{
		Timeout: config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		},
	}
	return &SimpleFetcher{
		client: client,
		config: config,
		logger: logger,
		pdf:    pdf,
	}
}

// Name returns the method label for this strategy
func (f *SimpleFetcher) Name() models.FetchMethod {
	return models.MethodSimple
}

func (f *SimpleFetcher) limiter(host string) *rate.Limiter {
	if v, ok := f.limiters.Load(host); ok {
		return v.(*rate.Limiter)
	}
	r := f.config.PerHostRate
	if r <= 0 {
		r = 4
	}
	burst := f.config.PerHostBurst
	if burst <= 0 {
		burst = 8
	}
	l := rate.NewLimiter(rate.Limit(r), burst)
	actual, _ := f.limiters.LoadOrStore(host, l)
	return actual.(*rate.Limiter)
}

// Fetch performs the GET with retry on transient network errors.
// HTTP 4xx responses are returned without retry; 5xx returns an error so
// the escalation engine moves to the next tier.
func (f *SimpleFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	host := common.HostOf(target)
	if err := f.limiter(host).Wait(ctx); err != nil {
		return nil, err
	}

	attempts := f.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := f.config.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		result, err := f.fetchOnce(ctx, target, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
		f.logger.Debug().
			Err(err).
			Str("url", target).
			Int("attempt", attempt+1).
			Msg("Transient fetch error, retrying")
	}
	return nil, lastErr
}

func (f *SimpleFetcher) fetchOnce(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	ua := f.config.UserAgent
	if opts != nil && opts.UserAgent != "" {
		ua = opts.UserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage(opts))
	// Accept-Encoding is left to the transport so gzip is decoded transparently
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if opts != nil {
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
		for _, c := range opts.Cookies {
			req.Header.Add("Cookie", c)
		}
	}

	client := f.client
	if opts != nil && opts.Proxy != "" {
		proxyURL, perr := url.Parse(opts.Proxy)
		if perr != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", perr)
		}
		client = &http.Client{
			Timeout:       f.client.Timeout,
			CheckRedirect: f.client.CheckRedirect,
			Transport:     &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	limited := io.LimitReader(resp.Body, int64(f.config.MaxBodySize))

	if strings.Contains(contentType, "application/pdf") {
		body, rerr := io.ReadAll(limited)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read pdf body: %w", rerr)
		}
		text, perr := f.pdf.ExtractText(body)
		if perr != nil {
			return nil, fmt.Errorf("pdf extraction failed: %w", perr)
		}
		return &models.FetchResult{
			URL:         target,
			HTML:        "<pre>" + text + "</pre>",
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Method:      models.MethodSimple,
		}, nil
	}

	reader, err := charset.NewReader(limited, contentType)
	if err != nil {
		reader = limited
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	result := &models.FetchResult{
		URL:         target,
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Method:      models.MethodSimple,
		Edge:        resp.Header.Get("CF-Ray"),
	}
	result.ChallengeDetected = IsChallengePage(result.HTML)
	return result, nil
}

func acceptLanguage(opts *models.RequestOptions) string {
	if opts != nil && opts.Location != nil && len(opts.Location.Languages) > 0 {
		return strings.Join(opts.Location.Languages, ",")
	}
	return "en-US,en;q=0.9"
}

// isTransient reports whether an error is worth retrying. DNS, dial and
// timeout failures are transient; everything else is not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "upstream returned 5")
}
