// -----------------------------------------------------------------------
// Search Service - DuckDuckGo HTML endpoint scraper
// -----------------------------------------------------------------------

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

const defaultBaseURL = "https://html.duckduckgo.com/html/"

// Service queries the DuckDuckGo HTML endpoint, which needs no API key
// and returns server-rendered results.
type Service struct {
	baseURL    string
	maxResults int
	client     *http.Client
	logger     arbor.ILogger
}

// NewService creates the search service
func NewService(config *common.SearchConfig, logger arbor.ILogger) *Service {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	return &Service{
		baseURL:    baseURL,
		maxResults: maxResults,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search runs one query and returns up to limit results
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []*models.SearchResult
	doc.Find(".result").Each(func(_ int, sel *goquery.Selection) {
		if len(results) >= limit {
			return
		}
		link := sel.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		target := resolveRedirect(href)
		if target == "" {
			return
		}
		results = append(results, &models.SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
	})

	s.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Search completed")
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if target, err := url.QueryUnescape(uddg); err == nil {
			href = target
		} else {
			href = uddg
		}
	}
	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		return ""
	}
	return href
}
