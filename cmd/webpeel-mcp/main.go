// -----------------------------------------------------------------------
// WebPeel MCP server - exposes peel tools over stdio
// -----------------------------------------------------------------------

package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/webpeel/webpeel/internal/cache"
	"github.com/webpeel/webpeel/internal/common"
	"github.com/webpeel/webpeel/internal/fetch"
	"github.com/webpeel/webpeel/internal/interfaces"
	"github.com/webpeel/webpeel/internal/llm"
	"github.com/webpeel/webpeel/internal/mcp"
	"github.com/webpeel/webpeel/internal/peel"
	"github.com/webpeel/webpeel/internal/search"
	badgerstore "github.com/webpeel/webpeel/internal/storage/badger"
	"github.com/webpeel/webpeel/internal/track"
)

func main() {
	configPath := os.Getenv("WEBPEEL_CONFIG")
	if configPath == "" {
		configPath = "webpeel.toml"
	}

	var paths []string
	if _, err := os.Stat(configPath); err == nil {
		paths = append(paths, configPath)
	}
	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Console-only logger at warn level to keep MCP stdio clean
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("warn")

	storageManager, err := badgerstore.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	pool := fetch.NewBrowserPool(config.Fetch.Browser, config.Fetch.UserAgent, logger)
	if err := pool.Init(); err != nil {
		logger.Warn().Err(err).Msg("Browser pool warmup failed, render tiers unavailable")
	}
	defer pool.Shutdown()
	intel := fetch.NewDomainIntel(storageManager.DomainStats(), logger)

	pdf := fetch.NewPDFExtractor(logger)
	fetcher := fetch.NewSmartFetchService(
		fetch.NewSimpleFetcher(&config.Fetch, pdf, logger),
		fetch.NewBrowserFetcher(pool, &config.Fetch, logger),
		fetch.NewStealthFetcher(&config.Fetch, logger),
		fetch.NewCFWorkerFetcher(&config.Fetch, logger),
		fetch.NewPeelTLSFetcher(&config.Fetch, logger),
		fetch.NewGoogleCacheFetcher(&config.Fetch, logger),
		fetch.NewDefaultHooks(intel, &config.Fetch),
		&config.Fetch, logger,
	)

	var resultCache interfaces.ResultCache
	if config.Cache.Enabled {
		svc, cerr := cache.NewService(&config.Cache, logger)
		if cerr != nil {
			logger.Fatal().Err(cerr).Msg("Failed to initialize cache")
		}
		resultCache = svc
	}

	tracker, err := track.NewTracker(config.Storage.SnapshotsDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize change tracker")
	}

	claude, err := llm.NewClaudeService(&config.Claude, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize llm service")
	}

	peelService := peel.NewService(fetcher, resultCache, tracker, claude, config, logger)
	searchService := search.NewService(&config.Search, logger)

	mcpServer := server.NewMCPServer(
		"webpeel",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)
	mcp.RegisterTools(mcpServer, peelService, searchService, logger)

	// Blocks on stdio
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
