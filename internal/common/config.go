package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Fetch       FetchConfig   `toml:"fetch"`
	Cache       CacheConfig   `toml:"cache"`
	Quota       QuotaConfig   `toml:"quota"`
	Jobs        JobsConfig    `toml:"jobs"`
	Watch       WatchConfig   `toml:"watch"`
	Crawl       CrawlConfig   `toml:"crawl"`
	Claude      ClaudeConfig  `toml:"claude"`
	Search      SearchConfig  `toml:"search"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port        int      `toml:"port"`
	Host        string   `toml:"host"`
	CORSOrigins []string `toml:"cors_origins"`
}

type StorageConfig struct {
	Badger       BadgerConfig `toml:"badger"`
	SnapshotsDir string       `toml:"snapshots_dir"` // Default: ~/.webpeel/snapshots
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// FetchConfig contains configuration for the tiered fetch pipeline
type FetchConfig struct {
	UserAgent      string        `toml:"user_agent"`       // Browser-grade default UA
	RequestTimeout time.Duration `toml:"request_timeout"`  // Per-request default budget
	RenderTimeout  time.Duration `toml:"render_timeout"`   // Budget when render=true
	MaxBodySize    int           `toml:"max_body_size"`    // Maximum response body size in bytes
	MaxRedirects   int           `toml:"max_redirects"`    // Redirect follow limit (default 10)
	RetryAttempts  int           `toml:"retry_attempts"`   // Transient-error retries (default 3)
	RetryBackoff   time.Duration `toml:"retry_backoff"`    // Backoff base (default 500ms)
	RaceEnabled    bool          `toml:"race_enabled"`     // Race simple fetch against browser render
	RaceTimeout    time.Duration `toml:"race_timeout"`     // Delay before browser joins the race (default 2s)
	PerHostRate    float64       `toml:"per_host_rate"`    // Requests per second per host
	PerHostBurst   int           `toml:"per_host_burst"`   // Burst allowance per host
	CFWorkerURL    string        `toml:"cf_worker_url"`    // Cloudflare worker proxy fallback
	CFWorkerToken  string        `toml:"cf_worker_token"`  // Bearer token for the worker proxy
	PeelTLSEnabled bool          `toml:"peeltls_enabled"`  // Client-profile-rotating HTTP fallback
	Browser        BrowserConfig `toml:"browser"`
}

// BrowserConfig controls the shared chromedp pool
type BrowserConfig struct {
	PoolSize           int           `toml:"pool_size"`
	Headless           bool          `toml:"headless"`
	DisableGPU         bool          `toml:"disable_gpu"`
	NoSandbox          bool          `toml:"no_sandbox"`
	JavaScriptWaitTime time.Duration `toml:"javascript_wait_time"`
	NavigationTimeout  time.Duration `toml:"navigation_timeout"`
}

// CacheConfig controls the stale-while-revalidate result cache
type CacheConfig struct {
	Enabled    bool          `toml:"enabled"`
	MaxEntries int           `toml:"max_entries"` // Default 1000
	MaxBytes   int64         `toml:"max_bytes"`   // Default 100 MB
	FreshTTL   time.Duration `toml:"fresh_ttl"`   // Fresh window (default 5m)
	StaleTTL   time.Duration `toml:"stale_ttl"`   // Extended staleness window (default 1h)
}

// QuotaConfig controls weekly/burst limits and pay-as-you-go rates
type QuotaConfig struct {
	WeeklyLimit  int     `toml:"weekly_limit"`  // Requests per ISO week per key
	BurstLimit   int     `toml:"burst_limit"`   // Requests per hour per key
	RateBasic    float64 `toml:"rate_basic"`    // Extra-usage charge per basic request
	RateStealth  float64 `toml:"rate_stealth"`  // Extra-usage charge per stealth request
	RateCaptcha  float64 `toml:"rate_captcha"`  // Extra-usage charge per captcha solve
	RateSearch   float64 `toml:"rate_search"`   // Extra-usage charge per search
	DisableQuota bool    `toml:"disable_quota"` // Development escape hatch
}

// JobsConfig contains configuration for the async job queue
type JobsConfig struct {
	Workers        int           `toml:"workers"`         // Batch worker pool size (default 5)
	TTL            time.Duration `toml:"ttl"`             // Terminal job retention (default 24h)
	WebhookTimeout time.Duration `toml:"webhook_timeout"` // Delivery timeout (default 10s)
}

// WatchConfig contains configuration for the persistent URL watcher
type WatchConfig struct {
	Enabled            bool          `toml:"enabled"`
	TickInterval       time.Duration `toml:"tick_interval"`        // Scheduler tick (default 60s)
	BatchSize          int           `toml:"batch_size"`           // Max watches per tick (default 50)
	MinIntervalMinutes int           `toml:"min_interval_minutes"` // Floor on check interval (default 5)
	WebhookTimeout     time.Duration `toml:"webhook_timeout"`      // Delivery timeout (default 10s)
}

// CrawlConfig contains configuration for site crawl/map operations
type CrawlConfig struct {
	MaxDepth    int           `toml:"max_depth"`    // Default 2
	MaxPages    int           `toml:"max_pages"`    // Default 50
	Parallelism int           `toml:"parallelism"`  // Concurrent requests per crawl
	Delay       time.Duration `toml:"delay"`        // Politeness delay between requests
	Timeout     time.Duration `toml:"timeout"`      // Whole-crawl budget (default 300s)
	IgnoreRobots bool         `toml:"ignore_robots"`
}

// ClaudeConfig contains configuration for the LLM extraction engine
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

// SearchConfig contains configuration for the web search provider
type SearchConfig struct {
	BaseURL    string        `toml:"base_url"` // Default: DuckDuckGo HTML endpoint
	Timeout    time.Duration `toml:"timeout"`
	MaxResults int           `toml:"max_results"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Log directory (default: <exe>/logs)
}

// DefaultConfig returns the baseline configuration before file/env overrides
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: filepath.Join(home, ".webpeel", "data"),
			},
			SnapshotsDir: filepath.Join(home, ".webpeel", "snapshots"),
		},
		Fetch: FetchConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			RenderTimeout:  60 * time.Second,
			MaxBodySize:    10 * 1024 * 1024,
			MaxRedirects:   10,
			RetryAttempts:  3,
			RetryBackoff:   500 * time.Millisecond,
			RaceEnabled:    false,
			RaceTimeout:    2 * time.Second,
			PerHostRate:    4,
			PerHostBurst:   8,
			Browser: BrowserConfig{
				PoolSize:           2,
				Headless:           true,
				DisableGPU:         true,
				NoSandbox:          false,
				JavaScriptWaitTime: 2 * time.Second,
				NavigationTimeout:  45 * time.Second,
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 1000,
			MaxBytes:   100 * 1024 * 1024,
			FreshTTL:   5 * time.Minute,
			StaleTTL:   time.Hour,
		},
		Quota: QuotaConfig{
			WeeklyLimit: 125,
			BurstLimit:  25,
			RateBasic:   0.002,
			RateStealth: 0.01,
			RateCaptcha: 0.02,
			RateSearch:  0.001,
		},
		Jobs: JobsConfig{
			Workers:        5,
			TTL:            24 * time.Hour,
			WebhookTimeout: 10 * time.Second,
		},
		Watch: WatchConfig{
			Enabled:            true,
			TickInterval:       60 * time.Second,
			BatchSize:          50,
			MinIntervalMinutes: 5,
			WebhookTimeout:     10 * time.Second,
		},
		Crawl: CrawlConfig{
			MaxDepth:    2,
			MaxPages:    50,
			Parallelism: 4,
			Delay:       200 * time.Millisecond,
			Timeout:     300 * time.Second,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
			Timeout:   "60s",
		},
		Search: SearchConfig{
			BaseURL:    "https://html.duckduckgo.com/html/",
			Timeout:    15 * time.Second,
			MaxResults: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from defaults, then layers each file in
// order (later files override earlier ones), then applies env overrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("WEBPEEL_ENV"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		config.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("WEBPEEL_DATA_DIR"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("WEBPEEL_SNAPSHOTS_DIR"); v != "" {
		config.Storage.SnapshotsDir = v
	}
	if v := os.Getenv("WEBPEEL_CF_WORKER_URL"); v != "" {
		config.Fetch.CFWorkerURL = v
	}
	if v := os.Getenv("WEBPEEL_CF_WORKER_TOKEN"); v != "" {
		config.Fetch.CFWorkerToken = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("WEBPEEL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
