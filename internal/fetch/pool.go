// -----------------------------------------------------------------------
// Browser Pool - shared chromedp contexts with round-robin allocation
// -----------------------------------------------------------------------

package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/common"
)

// BrowserPool manages a pool of chromedp browser contexts shared across
// requests. Each render runs in a fresh tab context derived from a pooled
// browser, so page state never leaks between requests.
type BrowserPool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	currentIndex     int
	userAgent        string
	config           common.BrowserConfig
	logger           arbor.ILogger
	initialized      bool
}

// NewBrowserPool creates an uninitialized browser pool
func NewBrowserPool(config common.BrowserConfig, userAgent string, logger arbor.ILogger) *BrowserPool {
	return &BrowserPool{
		config:    config,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Init launches the configured number of browser instances. Partial
// startup is tolerated as long as at least one instance comes up.
func (p *BrowserPool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}
	size := p.config.PoolSize
	if size <= 0 {
		size = 1
	}

	p.logger.Info().
		Int("pool_size", size).
		Bool("headless", p.config.Headless).
		Msg("Initializing browser pool")

	var lastErr error
	for i := 0; i < size; i++ {
		if err := p.createInstance(i); err != nil {
			lastErr = err
			p.logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to create browser instance")
		}
	}
	if len(p.browsers) == 0 {
		p.cleanupLocked()
		return fmt.Errorf("failed to create any browser instances: %w", lastErr)
	}

	p.initialized = true
	p.logger.Info().Int("browsers_created", len(p.browsers)).Msg("Browser pool initialized")
	return nil
}

func (p *BrowserPool) createInstance(index int) error {
	startTime := time.Now()

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", p.config.DisableGPU),
		chromedp.Flag("no-sandbox", p.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.userAgent),
		chromedp.WindowSize(1920, 1080),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser instance failed startup test: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)

	p.logger.Debug().
		Int("browser_index", index).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser instance created")
	return nil
}

// Get returns a pooled browser context using round-robin allocation
func (p *BrowserPool) Get() (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || len(p.browsers) == 0 {
		return nil, fmt.Errorf("browser pool not initialized")
	}
	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)
	return p.browsers[index], nil
}

// Shutdown cancels all browser and allocator contexts
func (p *BrowserPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	count := len(p.browsers)
	p.cleanupLocked()
	p.initialized = false
	p.logger.Info().Int("browsers_shutdown", count).Msg("Browser pool shut down")
}

func (p *BrowserPool) cleanupLocked() {
	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
}
