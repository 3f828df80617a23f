// -----------------------------------------------------------------------
// App - dependency wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/webpeel/webpeel/internal/cache"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/fetch"
	"github.com/webpeel/webpeel/internal/handlers"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/jobs"
	"github.com/webpeel/webpeel/internal/llm"
	"github.com/webpeel/webpeel/internal/peel"
	"github.com/webpeel/webpeel/internal/quota"
	"github.com/webpeel/webpeel/internal/search"
	badgerstore "github.com/webpeel/webpeel/internal/storage/badger"
	"github.com/webpeel/webpeel/internal/track"
	"github.com/webpeel/webpeel/internal/watch"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager

	// Fetch pipeline
	BrowserPool *fetch.BrowserPool
	DomainIntel *fetch.DomainIntel
	Fetcher     interfaces.SmartFetcher

	// Content services
	Cache   interfaces.ResultCache
	Tracker interfaces.ChangeTracker
	LLM     interfaces.LLMService
	Search  interfaces.SearchService
	Peel    interfaces.PeelService

	// Accounting and scheduling
	Quota   *quota.Service
	Jobs    interfaces.JobService
	Watches interfaces.WatchService

	// HTTP handlers
	StatusHandler     *handlers.StatusHandler
	FetchHandler      *handlers.FetchHandler
	SearchHandler     *handlers.SearchHandler
	ExtractHandler    *handlers.ExtractHandler
	BatchHandler      *handlers.BatchHandler
	AnswerHandler     *handlers.AnswerHandler
	ScreenshotHandler *handlers.ScreenshotHandler
	CrawlHandler      *handlers.CrawlHandler
	WatchHandler      *handlers.WatchHandler
	JobHandler        *handlers.JobHandler

	maintenance *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	if err := app.initFetchPipeline(); err != nil {
		storageManager.Close()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, err
	}
	app.initHandlers()
	app.startMaintenance()

	logger.Info().
		Int("browser_pool", cfg.Fetch.Browser.PoolSize).
		Bool("cache", cfg.Cache.Enabled).
		Bool("watch", cfg.Watch.Enabled).
		Msg("Application initialized")
	return app, nil
}

func (a *App) initFetchPipeline() error {
	cfg := a.Config

	a.BrowserPool = fetch.NewBrowserPool(cfg.Fetch.Browser, cfg.Fetch.UserAgent, a.Logger)
	if err := a.BrowserPool.Init(); err != nil {
		// Render tiers degrade to errors the escalation engine moves past;
		// simple HTTP and the fallback mirrors still serve.
		a.Logger.Warn().Err(err).Msg("Browser pool warmup failed, render tiers unavailable")
	}
	a.DomainIntel = fetch.NewDomainIntel(a.StorageManager.DomainStats(), a.Logger)

	pdf := fetch.NewPDFExtractor(a.Logger)
	simple := fetch.NewSimpleFetcher(&cfg.Fetch, pdf, a.Logger)
	browser := fetch.NewBrowserFetcher(a.BrowserPool, &cfg.Fetch, a.Logger)
	stealth := fetch.NewStealthFetcher(&cfg.Fetch, a.Logger)
	cfWorker := fetch.NewCFWorkerFetcher(&cfg.Fetch, a.Logger)
	peelTLS := fetch.NewPeelTLSFetcher(&cfg.Fetch, a.Logger)
	googleCache := fetch.NewGoogleCacheFetcher(&cfg.Fetch, a.Logger)
	hooks := fetch.NewDefaultHooks(a.DomainIntel, &cfg.Fetch)

	a.Fetcher = fetch.NewSmartFetchService(
		simple, browser, stealth,
		cfWorker, peelTLS, googleCache,
		hooks, &cfg.Fetch, a.Logger,
	)
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	if cfg.Cache.Enabled {
		resultCache, err := cache.NewService(&cfg.Cache, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		a.Cache = resultCache
	}

	tracker, err := track.NewTracker(cfg.Storage.SnapshotsDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize change tracker: %w", err)
	}
	a.Tracker = tracker

	claude, err := llm.NewClaudeService(&cfg.Claude, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize llm service: %w", err)
	}
	a.LLM = claude

	a.Search = search.NewService(&cfg.Search, a.Logger)
	a.Peel = peel.NewService(a.Fetcher, a.Cache, a.Tracker, a.LLM, cfg, a.Logger)
	a.Quota = quota.NewService(a.StorageManager.Quota(), &cfg.Quota, a.Logger)
	a.Jobs = jobs.NewService(a.Peel, &cfg.Jobs, a.Logger)
	a.Watches = watch.NewService(a.StorageManager.Watches(), a.Peel, a.Tracker, &cfg.Watch, a.Logger)

	if err := a.Watches.Start(); err != nil {
		return fmt.Errorf("failed to start watch scheduler: %w", err)
	}
	return nil
}

func (a *App) initHandlers() {
	a.StatusHandler = handlers.NewStatusHandler()
	a.FetchHandler = handlers.NewFetchHandler(a.Peel, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.Search, a.Logger)
	a.ExtractHandler = handlers.NewExtractHandler(a.Peel, a.Logger)
	a.BatchHandler = handlers.NewBatchHandler(a.Jobs, a.Logger)
	a.AnswerHandler = handlers.NewAnswerHandler(a.Peel, a.Search, a.LLM, a.Logger)
	a.ScreenshotHandler = handlers.NewScreenshotHandler(a.Peel, a.LLM, a.Logger)
	a.CrawlHandler = handlers.NewCrawlHandler(a.Peel, a.Jobs, a.Logger)
	a.WatchHandler = handlers.NewWatchHandler(a.Watches, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Jobs, a.Logger)
}

// startMaintenance schedules the hourly job purge and the periodic
// domain-intelligence flush.
func (a *App) startMaintenance() {
	a.maintenance = cron.New()
	a.maintenance.AddFunc("@hourly", func() {
		a.Jobs.PurgeExpired()
		a.StorageManager.RunGC()
	})
	a.maintenance.AddFunc("@every 10m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.DomainIntel.Flush(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Domain intelligence flush failed")
		}
	})
	a.maintenance.Start()
}

// Close shuts down all application resources in dependency order
func (a *App) Close() error {
	if a.maintenance != nil {
		a.maintenance.Stop()
	}
	if a.Watches != nil {
		a.Watches.Stop()
	}
	if a.DomainIntel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.DomainIntel.Flush(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Final domain intelligence flush failed")
		}
		cancel()
	}
	if a.BrowserPool != nil {
		a.BrowserPool.Shutdown()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
			return err
		}
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
