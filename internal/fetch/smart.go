// -----------------------------------------------------------------------
// Smart Fetcher - tiered escalation across fetch strategies
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/models"
)

// SmartFetchService escalates through simple HTTP, browser render, stealth
// render, and fallback mirrors until one of them produces real content.
// Strategy ordering is deterministic except when the simple/browser race
// is enabled.
type SmartFetchService struct {
	simple      *SimpleFetcher
	browser     *BrowserFetcher
	stealth     *StealthFetcher
	cfWorker    *CFWorkerFetcher
	peelTLS     *PeelTLSFetcher
	googleCache *GoogleCacheFetcher
	hooks       interfaces.FetchHooks
	config      *common.FetchConfig
	logger      arbor.ILogger
}

// NewSmartFetchService wires the strategies into the escalation engine.
// cfWorker and peelTLS may be nil when unconfigured; hooks may be nil for
// pure base escalation.
func NewSmartFetchService(
	simple *SimpleFetcher,
	browser *BrowserFetcher,
	stealth *StealthFetcher,
	cfWorker *CFWorkerFetcher,
	peelTLS *PeelTLSFetcher,
	googleCache *GoogleCacheFetcher,
	hooks interfaces.FetchHooks,
	config *common.FetchConfig,
	logger arbor.ILogger,
) *SmartFetchService {
	return &SmartFetchService{
		simple:      simple,
		browser:     browser,
		stealth:     stealth,
		cfWorker:    cfWorker,
		peelTLS:     peelTLS,
		googleCache: googleCache,
		hooks:       hooks,
		config:      config,
		logger:      logger,
	}
}

// SmartFetch resolves one URL to HTML through the tiered pipeline
func (s *SmartFetchService) SmartFetch(ctx context.Context, url string, opts *models.RequestOptions) (*models.FetchResult, error) {
	var best *models.FetchResult // best challenge page seen so far

	record := func(method models.FetchMethod, success bool) {
		if s.hooks != nil {
			s.hooks.RecordOutcome(url, method, success)
		}
	}

	keep := func(r *models.FetchResult) {
		if r == nil {
			return
		}
		if best == nil || len(r.HTML) > len(best.HTML) {
			best = r
		}
	}

	startMethod := models.FetchMethod("")
	if s.hooks != nil {
		startMethod = s.hooks.RecommendMethod(url)
	}

	skipSimple := opts.NeedsBrowser() || startMethod == models.MethodBrowser || startMethod == models.MethodStealth
	wantStealth := (opts != nil && opts.Stealth) || startMethod == models.MethodStealth

	// solved marks a success that came after a tier served a challenge
	// page, so the quota layer can bill the bypass.
	solved := func(r *models.FetchResult) *models.FetchResult {
		r.ChallengeSolved = best != nil
		return r
	}

	// Tier 1: simple HTTP, optionally racing a delayed browser render.
	// The race records its own outcome; a win is final.
	if !skipSimple {
		if s.raceEnabled(opts) {
			result, err := s.raceSimpleBrowser(ctx, url, opts, record)
			if err == nil {
				return result, nil
			}
			record(models.MethodSimple, false)
			s.logger.Debug().Err(err).Str("url", url).Msg("Fetch race failed, escalating")
		} else {
			result, err := s.simple.Fetch(ctx, url, opts)
			if err == nil && result != nil {
				if !result.ChallengeDetected && result.StatusCode < 400 {
					record(result.Method, true)
					return result, nil
				}
				if result.StatusCode >= 400 && result.StatusCode < 500 && !result.ChallengeDetected {
					// 4xx is a definitive answer, not a blocking signal
					record(models.MethodSimple, false)
					return result, nil
				}
				keep(result)
			}
			record(models.MethodSimple, false)
			if err != nil {
				s.logger.Debug().Err(err).Str("url", url).Msg("Simple fetch failed, escalating")
			}
		}
	}

	// Tier 2: browser render
	if !wantStealth {
		result, err := s.browser.Fetch(ctx, url, opts)
		if err == nil && !result.ChallengeDetected {
			record(models.MethodBrowser, true)
			return solved(result), nil
		}
		record(models.MethodBrowser, false)
		if err == nil {
			keep(result)
		} else {
			s.logger.Debug().Err(err).Str("url", url).Msg("Browser render failed, escalating")
		}
	}

	// Tier 3: stealth render
	result, err := s.stealth.Fetch(ctx, url, opts)
	if err == nil && !result.ChallengeDetected {
		record(models.MethodStealth, true)
		return solved(result), nil
	}
	record(models.MethodStealth, false)
	if err == nil {
		keep(result)
	} else {
		s.logger.Debug().Err(err).Str("url", url).Msg("Stealth render failed, trying fallbacks")
	}

	// Fallback sources, in order
	if s.cfWorker != nil {
		if r, ferr := s.cfWorker.Fetch(ctx, url, opts); ferr == nil {
			if !r.ChallengeDetected {
				record(models.MethodCFWorker, true)
				return solved(r), nil
			}
			keep(r)
		}
	}
	if s.peelTLS != nil {
		if r, ferr := s.peelTLS.Fetch(ctx, url, opts); ferr == nil {
			if !r.ChallengeDetected {
				record(models.MethodPeelTLS, true)
				return solved(r), nil
			}
			keep(r)
		}
	}
	if r, ferr := s.googleCache.Fetch(ctx, url, opts); ferr == nil {
		record(models.MethodGoogleCache, true)
		return solved(r), nil
	}

	// Everything served a challenge: return the best HTML we captured
	if best != nil {
		best.ChallengeDetected = true
		return best, nil
	}
	return nil, fmt.Errorf("all fetch strategies failed for %s", url)
}

func (s *SmartFetchService) raceEnabled(opts *models.RequestOptions) bool {
	if s.hooks != nil {
		return s.hooks.RaceEnabled(opts)
	}
	return s.config.RaceEnabled
}

type raceOutcome struct {
	result *models.FetchResult
	err    error
}

// raceSimpleBrowser starts the simple fetch immediately and lets a browser
// render join after the race delay. First non-challenge success wins.
func (s *SmartFetchService) raceSimpleBrowser(ctx context.Context, url string, opts *models.RequestOptions, record func(models.FetchMethod, bool)) (*models.FetchResult, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceOutcome, 2)

	go func() {
		r, err := s.simple.Fetch(raceCtx, url, opts)
		results <- raceOutcome{r, err}
	}()

	delay := s.config.RaceTimeout
	if delay <= 0 {
		delay = 2 * time.Second
	}
	go func() {
		select {
		case <-raceCtx.Done():
			results <- raceOutcome{nil, raceCtx.Err()}
			return
		case <-time.After(delay):
		}
		r, err := s.browser.Fetch(raceCtx, url, opts)
		results <- raceOutcome{r, err}
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		out := <-results
		if out.err == nil && out.result != nil && !out.result.ChallengeDetected && out.result.StatusCode < 500 {
			record(out.result.Method, true)
			return out.result, nil
		}
		if firstErr == nil && out.err != nil {
			firstErr = out.err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("race produced no usable result")
	}
	return nil, firstErr
}
