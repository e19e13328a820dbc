package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Site      SiteConfig
	Timing    TimingConfig
	Store     StoreConfig
	Selectors SelectorsConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 5001
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the single shared Chromium session.
type BrowserConfig struct {
	// ProfileDir is the persistent user-data dir holding the login cookies.
	// Two processes must not share it.
	ProfileDir string // default: "./browser_data"

	// Headless is off by default: login needs a human at the window.
	Headless bool // default: false

	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 800

	// OpTimeout bounds every individual page call.
	OpTimeout time.Duration // default: 60s

	// Proxy is passed to Chromium's --proxy-server.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Stealth injects the go-rod/stealth evasion script into the page.
	Stealth bool // default: true

	AcceptLanguage string // default: "zh-CN,zh;q=0.9"

	// BlockTrackers fails requests to known ad and analytics hosts.
	BlockTrackers bool // default: true

	// BlockResources lists resource types the page never loads:
	// "Image", "Stylesheet", "Font", "Media", "Script".
	BlockResources []string // default: ["Media"]
}

// SiteConfig holds the target site's entry points.
type SiteConfig struct {
	HomeURL   string // default: "https://www.xiaohongshu.com"
	SearchURL string // default: "https://www.xiaohongshu.com/search_result?keyword="
}

// TimingConfig holds the fixed waits and iteration ceilings of the
// navigation helper and the login poll.
type TimingConfig struct {
	HomeDelay    time.Duration // default: 3s
	LoadDelay    time.Duration // default: 5s
	ContentDelay time.Duration // default: 10s
	CardDelay    time.Duration // default: 3s
	ScrollStep   time.Duration // default: 1s
	ScrollSettle time.Duration // default: 3s
	ActionDelay  time.Duration // default: 2s

	ExpandIterations int // default: 8
	ExpandScroll     int // default: 500
	CrawlMoreRounds  int // default: 5

	LoginAttempts int           // default: 36
	LoginInterval time.Duration // default: 5s
}

// StoreConfig controls where crawl results are persisted.
type StoreConfig struct {
	DataDir string // default: "scraped_notes"

	// ImageMaxBytes caps the HTTP image download fallback.
	ImageMaxBytes int64 // default: 10 MiB
}

// SelectorsConfig points at an optional YAML file overriding the
// default selector strategy table.
type SelectorsConfig struct {
	File string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication. The front end runs on
	// localhost, so this is off by default.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 2
}

// CORSConfig controls cross-origin access for the front end.
type CORSConfig struct {
	AllowOrigins []string // default: ["*"]
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// SearchTTL is how long search results are reused. Zero disables caching.
	SearchTTL time.Duration // default: 10m

	// MaxEntries is the maximum number of cached searches.
	MaxEntries int // default: 100
}

// WebhookConfig controls crawl event delivery.
type WebhookConfig struct {
	// URL receives crawl events. Empty disables webhooks.
	URL string

	// Secret signs payloads with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first; variables already
// set in the environment take precedence over it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("REDNOTE_HOST", "0.0.0.0"),
			Port: envIntOr("REDNOTE_PORT", 5001),
			Mode: envOr("REDNOTE_MODE", "release"),
		},
		Browser: BrowserConfig{
			ProfileDir:     envOr("REDNOTE_PROFILE_DIR", "./browser_data"),
			Headless:       envBoolOr("REDNOTE_HEADLESS", false),
			ViewportWidth:  envIntOr("REDNOTE_VIEWPORT_WIDTH", 1280),
			ViewportHeight: envIntOr("REDNOTE_VIEWPORT_HEIGHT", 800),
			OpTimeout:      envDurationOr("REDNOTE_OP_TIMEOUT", 60*time.Second),
			Proxy:          os.Getenv("REDNOTE_PROXY"),
			NoSandbox:      envBoolOr("REDNOTE_NO_SANDBOX", false),
			Bin:            os.Getenv("REDNOTE_BROWSER_BIN"),
			Stealth:        envBoolOr("REDNOTE_STEALTH", true),
			AcceptLanguage: envOr("REDNOTE_ACCEPT_LANGUAGE", "zh-CN,zh;q=0.9"),
			BlockTrackers:  envBoolOr("REDNOTE_BLOCK_TRACKERS", true),
			BlockResources: envSliceOr("REDNOTE_BLOCK_RESOURCES", []string{"Media"}),
		},
		Site: SiteConfig{
			HomeURL:   envOr("REDNOTE_HOME_URL", "https://www.xiaohongshu.com"),
			SearchURL: envOr("REDNOTE_SEARCH_URL", "https://www.xiaohongshu.com/search_result?keyword="),
		},
		Timing: TimingConfig{
			HomeDelay:        envDurationOr("REDNOTE_HOME_DELAY", 3*time.Second),
			LoadDelay:        envDurationOr("REDNOTE_LOAD_DELAY", 5*time.Second),
			ContentDelay:     envDurationOr("REDNOTE_CONTENT_DELAY", 10*time.Second),
			CardDelay:        envDurationOr("REDNOTE_CARD_DELAY", 3*time.Second),
			ScrollStep:       envDurationOr("REDNOTE_SCROLL_STEP", time.Second),
			ScrollSettle:     envDurationOr("REDNOTE_SCROLL_SETTLE", 3*time.Second),
			ActionDelay:      envDurationOr("REDNOTE_ACTION_DELAY", 2*time.Second),
			ExpandIterations: envIntOr("REDNOTE_EXPAND_ITERATIONS", 8),
			ExpandScroll:     envIntOr("REDNOTE_EXPAND_SCROLL", 500),
			CrawlMoreRounds:  envIntOr("REDNOTE_CRAWL_MORE_ROUNDS", 5),
			LoginAttempts:    envIntOr("REDNOTE_LOGIN_ATTEMPTS", 36),
			LoginInterval:    envDurationOr("REDNOTE_LOGIN_INTERVAL", 5*time.Second),
		},
		Store: StoreConfig{
			DataDir:       envOr("REDNOTE_DATA_DIR", "scraped_notes"),
			ImageMaxBytes: int64(envIntOr("REDNOTE_IMAGE_MAX_BYTES", 10<<20)),
		},
		Selectors: SelectorsConfig{
			File: os.Getenv("REDNOTE_SELECTORS_FILE"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("REDNOTE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("REDNOTE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("REDNOTE_RATE_RPS", 1.0),
			Burst:             envIntOr("REDNOTE_RATE_BURST", 2),
		},
		CORS: CORSConfig{
			AllowOrigins: envSliceOr("REDNOTE_CORS_ORIGINS", []string{"*"}),
		},
		Cache: CacheConfig{
			SearchTTL:  envDurationOr("REDNOTE_SEARCH_CACHE_TTL", 10*time.Minute),
			MaxEntries: envIntOr("REDNOTE_CACHE_MAX_ENTRIES", 100),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("REDNOTE_WEBHOOK_URL"),
			Secret: os.Getenv("REDNOTE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("REDNOTE_LOG_LEVEL", "info"),
			Format: envOr("REDNOTE_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
