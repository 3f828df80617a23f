// -----------------------------------------------------------------------
// Crawl - bounded breadth-first site walk
// -----------------------------------------------------------------------

package peel

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/extract"
	"github.com/webpeel/webpeel/internal/models"
)

// Crawl walks a site breadth-first up to maxDepth link hops and maxPages
// pages, staying on the start host. Each page runs through the same
// extraction pipeline as a single peel.
func (s *Service) Crawl(ctx context.Context, rawURL string, maxDepth, maxPages int, opts *models.RequestOptions) ([]*models.CrawlPage, error) {
	if opts == nil {
		opts = &models.RequestOptions{}
	}
	url, err := common.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = s.config.Crawl.MaxDepth
	}
	if maxDepth <= 0 {
		maxDepth = 2
	}
	if maxPages <= 0 {
		maxPages = s.config.Crawl.MaxPages
	}
	if maxPages <= 0 {
		maxPages = 50
	}

	host := common.HostOf(url)
	options := []colly.CollectorOption{
		colly.AllowedDomains(host, "www."+host),
		// colly counts the seed as depth 1
		colly.MaxDepth(maxDepth + 1),
		colly.UserAgent(s.config.Fetch.UserAgent),
		colly.Async(true),
	}
	if s.config.Crawl.IgnoreRobots {
		options = append(options, colly.IgnoreRobotsTxt())
	}
	collector := colly.NewCollector(options...)

	parallelism := s.config.Crawl.Parallelism
	if parallelism <= 0 {
		parallelism = 3
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       s.config.Crawl.Delay,
	}); err != nil {
		return nil, err
	}
	timeout := s.config.Crawl.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var mu sync.Mutex
	var pages []*models.CrawlPage
	budgetLeft := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pages) < maxPages
	}

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || !budgetLeft() {
			r.Abort()
		}
	})

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		pageURL := e.Request.URL.String()
		html, err := e.DOM.Html()
		if err != nil {
			return
		}
		page := &models.CrawlPage{URL: pageURL, Depth: e.Request.Depth - 1}
		if result, perr := s.extractCrawledPage(pageURL, html, opts); perr != nil {
			page.Error = perr.Error()
		} else {
			page.Result = result
		}

		mu.Lock()
		if len(pages) < maxPages {
			pages = append(pages, page)
		}
		mu.Unlock()

		e.ForEach("a[href]", func(_ int, el *colly.HTMLElement) {
			if !budgetLeft() {
				return
			}
			link := el.Request.AbsoluteURL(el.Attr("href"))
			if link == "" {
				return
			}
			if err := el.Request.Visit(link); err != nil {
				// Revisits and off-domain links are expected noise
				return
			}
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if len(pages) < maxPages {
			pages = append(pages, &models.CrawlPage{
				URL:   r.Request.URL.String(),
				Depth: r.Request.Depth - 1,
				Error: err.Error(),
			})
		}
	})

	if err := collector.Visit(url); err != nil {
		return nil, err
	}
	collector.Wait()

	s.logger.Info().
		Str("url", url).
		Int("pages", len(pages)).
		Int("max_depth", maxDepth).
		Msg("Crawl completed")
	return pages, ctx.Err()
}

// extractCrawledPage runs the extraction pipeline on HTML colly already
// fetched, skipping the tiered fetcher.
func (s *Service) extractCrawledPage(url, html string, opts *models.RequestOptions) (*models.PeelResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	content, err := s.buildContent(html, url, opts)
	if err != nil {
		return nil, err
	}
	return &models.PeelResult{
		URL:         url,
		Title:       extract.ExtractTitle(doc),
		Content:     content,
		Method:      models.MethodSimple,
		Tokens:      extract.EstimateTokens(content),
		Fingerprint: extract.Fingerprint(content),
		Quality:     extract.QualityScore(content, html),
		Metadata:    extract.ExtractMetadata(doc, models.MethodSimple),
		Links:       extract.ExtractLinks(doc, url),
		StatusCode:  200,
		ContentType: "text/html",
	}, nil
}
