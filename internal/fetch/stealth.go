// -----------------------------------------------------------------------
// Stealth Fetcher - browser render with anti-detection measures
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/models"
)

// stealthJS masks the automation signals a headless browser leaks
const stealthJS = `
	// Override navigator.webdriver
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
		configurable: true
	});

	// Override navigator.plugins
	Object.defineProperty(navigator, 'plugins', {
		get: () => {
			const plugins = [
				{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
				{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
				{ name: 'Native Client', filename: 'internal-nacl-plugin' }
			];
			plugins.length = 3;
			return plugins;
		},
		configurable: true
	});

	// Override navigator.languages
	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
		configurable: true
	});

	// Override chrome.runtime
	if (!window.chrome) window.chrome = {};
	window.chrome.runtime = { id: undefined };

	// Override permissions.query
	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications' ?
			Promise.resolve({ state: Notification.permission }) :
			originalQuery(parameters)
	);

	// Fix WebGL vendor/renderer
	const getParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function(parameter) {
		if (parameter === 37445) return 'Intel Inc.';
		if (parameter === 37446) return 'Intel Iris OpenGL Engine';
		return getParameter.call(this, parameter);
	};
`

// StealthFetcher renders pages in a dedicated anti-detection browser. It
// launches its own instance per fetch rather than using the shared pool,
// since the stealth flag set differs from the pool's.
type StealthFetcher struct {
	config *common.FetchConfig
	logger arbor.ILogger
}

// NewStealthFetcher creates the stealth render strategy
func NewStealthFetcher(config *common.FetchConfig, logger arbor.ILogger) *StealthFetcher {
	return &StealthFetcher{config: config, logger: logger}
}

// Name returns the method label for this strategy
func (f *StealthFetcher) Name() models.FetchMethod {
	return models.MethodStealth
}

// Fetch renders the URL with automation signals masked and human-like
// timing between navigation and capture.
func (f *StealthFetcher) Fetch(ctx context.Context, target string, opts *models.RequestOptions) (*models.FetchResult, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", f.config.Browser.NoSandbox),
		chromedp.Flag("enable-webgl", true),
		chromedp.Flag("disable-gpu", false),
		chromedp.UserAgent(f.userAgent(opts)),
		chromedp.WindowSize(1920, 1080),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	defer allocatorCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	defer browserCancel()

	timeout := f.config.Browser.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(browserCtx, timeout)
	defer runCancel()

	go func() {
		select {
		case <-ctx.Done():
			runCancel()
		case <-runCtx.Done():
		}
	}()

	// Human-like pause between navigation and interaction
	settle := time.Duration(1500+rand.Intn(1500)) * time.Millisecond
	if opts != nil && opts.Wait > 0 {
		settle = time.Duration(opts.Wait) * time.Millisecond
	}

	tasks := []chromedp.Action{
		chromedp.Navigate(target),
		chromedp.Evaluate(stealthJS, nil),
		chromedp.Sleep(settle),
	}
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

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return nil, fmt.Errorf("stealth render failed: %w", err)
	}

	result := &models.FetchResult{
		URL:         target,
		HTML:        html,
		StatusCode:  200,
		ContentType: "text/html",
		Method:      models.MethodStealth,
		Screenshot:  screenshot,
	}
	result.ChallengeDetected = IsChallengePage(html)
	return result, nil
}

func (f *StealthFetcher) userAgent(opts *models.RequestOptions) string {
	if opts != nil && opts.UserAgent != "" {
		return opts.UserAgent
	}
	return f.config.UserAgent
}
