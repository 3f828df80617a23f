// -----------------------------------------------------------------------
// Peel Service - fetch, clean, extract and cache orchestration
// -----------------------------------------------------------------------

package peel

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/extract"
	"github.com/webpeel/webpeel/internal/heuristics"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

const batchWorkers = 5

// Service composes the tiered fetcher, the extraction pipeline, the SWR
// cache and the change tracker into the one operation everything else
// calls.
type Service struct {
	fetcher interfaces.SmartFetcher
	cache   interfaces.ResultCache
	tracker interfaces.ChangeTracker
	llm     interfaces.LLMService
	config  *common.Config
	logger  arbor.ILogger
}

// NewService creates the peel service. cache may be nil when caching is
// disabled; llm may be unconfigured.
func NewService(fetcher interfaces.SmartFetcher, cache interfaces.ResultCache, tracker interfaces.ChangeTracker, llm interfaces.LLMService, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		tracker: tracker,
		llm:     llm,
		config:  config,
		logger:  logger,
	}
}

// Peel fetches one URL and returns its cleaned, structured content.
// Cached entries are served fresh with method "cached"; stale entries are
// served immediately while a single background revalidation refreshes the
// key.
func (s *Service) Peel(ctx context.Context, rawURL string, opts *models.RequestOptions) (*models.PeelResult, error) {
	if opts == nil {
		opts = &models.RequestOptions{}
	}
	url, err := common.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	key := opts.CacheKey(url)
	if s.cacheable(opts) {
		if hit := s.cache.Lookup(key); hit != nil {
			served := *hit.Result
			served.Method = models.MethodCached
			served.CacheAgeSec = hit.AgeSec
			if hit.Stale {
				s.revalidate(key, url, opts)
			}
			return &served, nil
		}
	}

	result, err := s.peelDirect(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	if s.cacheable(opts) {
		s.cache.Store(key, result)
	}
	return result, nil
}

// cacheable excludes requests whose results are not safely reusable
func (s *Service) cacheable(opts *models.RequestOptions) bool {
	if s.cache == nil || !s.config.Cache.Enabled {
		return false
	}
	return !opts.ChangeTracking && !opts.Screenshot && len(opts.Actions) == 0
}

// revalidate refreshes a stale key in the background. Only the claim
// winner runs; everyone else keeps serving stale.
func (s *Service) revalidate(key, url string, opts *models.RequestOptions) {
	if !s.cache.ClaimRevalidation(key) {
		return
	}
	go func() {
		defer s.cache.ReleaseRevalidation(key)
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(opts.EffectiveTimeoutMs())*time.Millisecond)
		defer cancel()

		result, err := s.peelDirect(ctx, url, opts)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", url).Msg("Cache revalidation failed")
			return
		}
		s.cache.Store(key, result)
	}()
}

// peelDirect runs the full fetch-and-extract pipeline, bypassing the cache
func (s *Service) peelDirect(ctx context.Context, url string, opts *models.RequestOptions) (*models.PeelResult, error) {
	start := time.Now()

	fetched, err := s.fetcher.SmartFetch(ctx, url, opts)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fetched.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	content, err := s.buildContent(fetched.HTML, url, opts)
	if err != nil {
		return nil, err
	}
	if opts.MaxTokens != nil {
		content = extract.TruncateToTokens(content, *opts.MaxTokens)
	}

	// Fingerprint and quality hash the content the caller receives, so the
	// token cap must already be applied.
	result := &models.PeelResult{
		URL:             url,
		Title:           extract.ExtractTitle(doc),
		Content:         content,
		Tokens:          extract.EstimateTokens(content),
		Method:          fetched.Method,
		ContentType:     fetched.ContentType,
		StatusCode:      fetched.StatusCode,
		ChallengeSolved: fetched.ChallengeSolved,
		Metadata:        extract.ExtractMetadata(doc, fetched.Method),
		Links:           extract.ExtractLinks(doc, url),
		Quality:         extract.QualityScore(content, fetched.HTML),
		Fingerprint:     extract.Fingerprint(content),
	}
	if opts.Images {
		result.Images = extract.ExtractImages(doc, url)
	}
	if len(fetched.Screenshot) > 0 {
		result.Screenshot = base64.StdEncoding.EncodeToString(fetched.Screenshot)
	}

	if opts.ChangeTracking && s.tracker != nil {
		tracked, terr := s.tracker.Track(url, content, extract.FullFingerprint(content))
		if terr != nil {
			s.logger.Warn().Err(terr).Str("url", url).Msg("Change tracking failed")
		} else if tracked != nil {
			result.ChangeStatus = tracked.ChangeStatus
			result.Diff = tracked.Diff
		}
	}

	if opts.Extract != nil {
		result.Extracted = s.runExtraction(ctx, url, content, doc, opts.Extract)
	}

	result.Elapsed = time.Since(start).Milliseconds()
	s.logger.Info().
		Str("url", url).
		Str("method", string(result.Method)).
		Int("tokens", result.Tokens).
		Int64("elapsed_ms", result.Elapsed).
		Msg("Peel completed")
	return result, nil
}

// buildContent narrows the HTML to the main content and renders it in the
// requested format.
func (s *Service) buildContent(html, url string, opts *models.RequestOptions) (string, error) {
	working := html
	if opts.Selector != "" {
		working = extract.SelectOnly(working, opts.Selector)
	} else if !opts.Raw {
		working, _ = extract.DetectMainContent(working)
	}

	exclude := opts.ExcludeTags
	if len(opts.Exclude) > 0 {
		exclude = append(append([]string{}, exclude...), opts.Exclude...)
	}
	if len(opts.IncludeTags) > 0 || len(exclude) > 0 {
		working = extract.FilterByTags(working, opts.IncludeTags, exclude)
	}

	conv := extract.NewConverter(url)
	switch opts.EffectiveFormat() {
	case models.FormatHTML:
		return working, nil
	case models.FormatText:
		return conv.ToText(working)
	case models.FormatClean:
		markdown, err := conv.ToMarkdown(working)
		if err != nil {
			return "", err
		}
		return extract.CleanForAI(markdown), nil
	default:
		return conv.ToMarkdown(working)
	}
}

// runExtraction routes the extract spec: CSS selectors alone use the DOM,
// schema/prompt use the LLM, an empty spec uses the heuristic extractor.
// LLM failures degrade to heuristics rather than failing the peel.
func (s *Service) runExtraction(ctx context.Context, url, content string, doc *goquery.Document, spec *models.ExtractSpec) map[string]interface{} {
	hasLLMWork := len(spec.Schema) > 0 || spec.Prompt != ""

	if !hasLLMWork && len(spec.Selectors) > 0 {
		record := make(map[string]interface{}, len(spec.Selectors))
		for name, selector := range spec.Selectors {
			record[name] = strings.TrimSpace(doc.Find(selector).First().Text())
		}
		return record
	}

	if hasLLMWork && s.llm != nil && s.llm.IsConfigured() {
		record, err := s.llm.ExtractStructured(ctx, content, spec)
		if err == nil {
			return record
		}
		s.logger.Warn().Err(err).Str("url", url).Msg("LLM extraction failed, using heuristics")
	}
	return heuristics.AutoExtract(url, content, doc)
}

// PeelBatch peels many URLs with bounded concurrency. Results are indexed
// by input position; per-URL failures carry Error and never abort the
// batch.
func (s *Service) PeelBatch(ctx context.Context, urls []string, opts *models.RequestOptions) []*models.PeelResult {
	results := make([]*models.PeelResult, len(urls))
	work := make(chan int)
	var wg sync.WaitGroup

	workers := batchWorkers
	if workers > len(urls) {
		workers = len(urls)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				result, err := s.Peel(ctx, urls[idx], opts)
				if err != nil {
					result = &models.PeelResult{URL: urls[idx], Error: err.Error()}
				}
				results[idx] = result
			}
		}()
	}
	for i := range urls {
		work <- i
	}
	close(work)
	wg.Wait()
	return results
}

// Map returns the deduplicated, sorted link inventory of a page
func (s *Service) Map(ctx context.Context, rawURL string) (*models.SiteMap, error) {
	url, err := common.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	fetched, err := s.fetcher.SmartFetch(ctx, url, &models.RequestOptions{})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fetched.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	links := extract.ExtractLinks(doc, url)
	return &models.SiteMap{URL: url, Links: links, Count: len(links)}, nil
}

// DeepFetch peels a page plus its most relevant linked pages and
// aggregates key points, entities and figures for a query.
func (s *Service) DeepFetch(ctx context.Context, rawURL, query string, maxPages int) (map[string]interface{}, error) {
	if maxPages <= 0 {
		maxPages = 3
	}
	root, err := s.Peel(ctx, rawURL, &models.RequestOptions{Format: models.FormatMarkdown})
	if err != nil {
		return nil, err
	}

	followed := rankLinks(root.Links, query, maxPages-1)
	pages := []*models.PeelResult{root}
	if len(followed) > 0 {
		for _, sub := range s.PeelBatch(ctx, followed, &models.RequestOptions{Format: models.FormatMarkdown}) {
			if sub.Error == "" {
				pages = append(pages, sub)
			}
		}
	}

	contents := make([]string, 0, len(pages))
	var combined strings.Builder
	for _, p := range pages {
		contents = append(contents, p.Content)
		combined.WriteString(p.Content)
		combined.WriteString("\n\n")
	}

	out := map[string]interface{}{
		"url":       root.URL,
		"query":     query,
		"pages":     pages,
		"keyPoints": heuristics.KeyPoints(combined.String(), query, 8),
		"entities":  heuristics.Entities(contents),
		"figures":   heuristics.ExtractFigures(combined.String()),
	}
	if heuristics.IsComparisonQuery(query) {
		if entities := heuristics.ComparedEntities(query); len(entities) == 2 {
			out["comparison"] = heuristics.BuildComparisonTable(combined.String(), entities)
		}
	}
	return out, nil
}

// rankLinks orders candidate links by query-token overlap with the URL
func rankLinks(links []string, query string, limit int) []string {
	if limit <= 0 || len(links) == 0 {
		return nil
	}
	tokens := heuristics.Tokenize(query)

	type scored struct {
		url   string
		score int
	}
	var ranked []scored
	for _, link := range links {
		lower := strings.ToLower(link)
		score := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{link, score})
		}
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].score > ranked[i].score {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.url
	}
	return out
}
