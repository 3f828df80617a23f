// -----------------------------------------------------------------------
// Browser Fetcher - headless render via the shared chromedp pool
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// BrowserFetcher renders pages with a pooled headless browser. Each fetch
// runs in a fresh tab context so page state never crosses requests.
type BrowserFetcher struct {
	pool   *BrowserPool
	config *common.FetchConfig
	logger arbor.ILogger
}

// NewBrowserFetcher creates the browser render strategy
func NewBrowserFetcher(pool *BrowserPool, config *common.FetchConfig, logger arbor.ILogger) *BrowserFetcher {
	return &BrowserFetcher{pool: pool, config: config, logger: logger}
}

// Name returns the method label for this strategy
func (f *BrowserFetcher) Name() models.FetchMethod {
	return models.MethodBrowser
}

// Fetch navigates the URL, executes any requested actions, optionally
// captures a screenshot, and returns the final document HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	browserCtx, err := f.pool.Get()
	if err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	timeout := f.config.Browser.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	// Propagate caller cancellation into the tab
	go func() {
		select {
		case <-ctx.Done():
			runCancel()
		case <-runCtx.Done():
		}
	}()

	tasks := overrideTasks(opts)
	tasks = append(tasks, chromedp.Navigate(target))
	tasks = append(tasks, f.waitTasks(opts)...)
	tasks = append(tasks, actionTasks(opts)...)

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	var screenshot []byte
	if opts != nil && opts.Screenshot {
		if opts.ScreenshotFullPage {
			tasks = append(tasks, chromedp.FullScreenshot(&screenshot, 90))
		} else {
			tasks = append(tasks, chromedp.CaptureScreenshot(&screenshot))
		}
	}

	start := time.Now()
	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return nil, fmt.Errorf("browser render failed: %w", err)
	}

	f.logger.Debug().
		Str("url", target).
		Dur("elapsed", time.Since(start)).
		Msg("Browser render complete")

	result := &models.FetchResult{
		URL:         target,
		HTML:        html,
		StatusCode:  200,
		ContentType: "text/html",
		Method:      models.MethodBrowser,
		Screenshot:  screenshot,
	}
	result.ChallengeDetected = IsChallengePage(html)
	return result, nil
}

// overrideTasks applies custom headers and user agent before navigation
func overrideTasks(opts *models.RequestOptions) []chromedp.Action {
	if opts == nil {
		return nil
	}
	var tasks []chromedp.Action
	if len(opts.Headers) > 0 {
		headers := make(network.Headers, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = v
		}
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(headers))
	}
	if opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(opts.UserAgent))
	}
	return tasks
}

func (f *BrowserFetcher) waitTasks(opts *models.RequestOptions) []chromedp.Action {
	var tasks []chromedp.Action
	wait := f.config.Browser.JavaScriptWaitTime
	if opts != nil && opts.Wait > 0 {
		wait = time.Duration(opts.Wait) * time.Millisecond
	}
	if wait > 0 {
		tasks = append(tasks, chromedp.Sleep(wait))
	}
	return tasks
}

// actionTasks translates the ordered action list into chromedp tasks
func actionTasks(opts *models.RequestOptions) []chromedp.Action {
	if opts == nil {
		return nil
	}
	var tasks []chromedp.Action
	for _, a := range opts.Actions {
		switch a.Type {
		case models.ActionClick:
			tasks = append(tasks, chromedp.Click(a.Selector, chromedp.ByQuery))
		case models.ActionFill:
			tasks = append(tasks, chromedp.SendKeys(a.Selector, a.Value, chromedp.ByQuery))
		case models.ActionPress:
			tasks = append(tasks, chromedp.KeyEvent(a.Value))
		case models.ActionWait:
			ms := a.Ms
			if ms <= 0 {
				ms = 1000
			}
			tasks = append(tasks, chromedp.Sleep(time.Duration(ms)*time.Millisecond))
		case models.ActionScroll:
			pixels := a.Pixels
			if pixels == 0 {
				pixels = 800
			}
			tasks = append(tasks, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil))
		case models.ActionWaitForSelector:
			tasks = append(tasks, chromedp.WaitVisible(a.Selector, chromedp.ByQuery))
		}
	}
	return tasks
}
