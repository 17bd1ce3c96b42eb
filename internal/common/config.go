package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig     `toml:"logging"`
	Storage     StorageConfig     `toml:"storage"`
	Companies   CompaniesConfig   `toml:"companies"`
	Profile     ProfileConfig     `toml:"profile"`
	Crawler     CrawlerConfig     `toml:"crawler"`
	HTTP        HTTPConfig        `toml:"http"`
	Ranker      RankerConfig      `toml:"ranker"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	LLM         LLMConfig         `toml:"llm"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// CompaniesConfig points at the directory of company seed definition files (TOML)
type CompaniesConfig struct {
	Dir string `toml:"dir"`
}

// ProfileConfig points at the user profile file (YAML)
type ProfileConfig struct {
	Path string `toml:"path"`
}

// CrawlerConfig controls the orchestrator and scheduler
type CrawlerConfig struct {
	IntervalMinutes            int    `toml:"interval_minutes" validate:"min=1"`
	MaxConcurrentCompanyCrawls int    `toml:"max_concurrent_company_crawls" validate:"min=1"`
	ETAWindow                  int    `toml:"eta_window" validate:"min=2"`
	MaxDescriptionChars        int    `toml:"max_description_chars" validate:"min=100"`
	StaleLogAge                string `toml:"stale_log_age"` // running logs older than this are swept as failed
}

// HTTPConfig controls the policy fetcher
type HTTPConfig struct {
	RatePerHost          float64  `toml:"rate_per_host" validate:"gt=0"` // tokens per second
	BurstPerHost         int      `toml:"burst_per_host" validate:"min=1"`
	RateWait             string   `toml:"rate_wait"` // max time to wait for a token
	MaxRetries           int      `toml:"max_retries" validate:"min=0"`
	InitialBackoffMs     int      `toml:"initial_backoff_ms" validate:"min=1"`
	MaxBackoffMs         int      `toml:"max_backoff_ms" validate:"min=1"`
	RequestTimeout       string   `toml:"request_timeout"`
	RobotsRespect        bool     `toml:"robots_respect"`
	RobotsTTL            string   `toml:"robots_ttl"`
	UserAgents           []string `toml:"user_agents"`
	Proxies              []string `toml:"proxies"`
	CircuitFailThreshold int      `toml:"circuit_fail_threshold" validate:"min=1"`
	CircuitWindow        string   `toml:"circuit_window"`
	CircuitCoolOff       string   `toml:"circuit_cool_off"`
}

// RankerConfig controls the AI ranking stage
type RankerConfig struct {
	Parallelism        int    `toml:"parallelism" validate:"min=1"`
	Timeout            string `toml:"timeout"`
	RecommendThreshold int    `toml:"recommend_threshold" validate:"min=0,max=100"`
	QueueDepth         int    `toml:"queue_depth" validate:"min=1"` // bounded channel between crawl workers and ranker
}

// GeminiConfig contains Google Gemini API settings
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API settings
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// LLMConfig contains provider-agnostic LLM settings
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "gemini" or "claude"
}

// MaintenanceConfig controls background maintenance jobs
type MaintenanceConfig struct {
	StaleLogSweepSchedule string `toml:"stale_log_sweep_schedule"` // cron format
}

// NewDefaultConfig returns a Config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/venari",
				ResetOnStartup: false,
			},
		},
		Companies: CompaniesConfig{Dir: "./companies"},
		Profile:   ProfileConfig{Path: "./profile.yaml"},
		Crawler: CrawlerConfig{
			IntervalMinutes:            30,
			MaxConcurrentCompanyCrawls: 5,
			ETAWindow:                  10,
			MaxDescriptionChars:        4000,
			StaleLogAge:                "30m",
		},
		HTTP: HTTPConfig{
			RatePerHost:      1.0,
			BurstPerHost:     2,
			RateWait:         "15s",
			MaxRetries:       3,
			InitialBackoffMs: 300,
			MaxBackoffMs:     5000,
			RequestTimeout:   "20s",
			RobotsRespect:    true,
			RobotsTTL:        "1h",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			},
			Proxies:              nil,
			CircuitFailThreshold: 5,
			CircuitWindow:        "30s",
			CircuitCoolOff:       "60s",
		},
		Ranker: RankerConfig{
			Parallelism:        4,
			Timeout:            "45s",
			RecommendThreshold: 60,
			QueueDepth:         32,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		LLM: LLMConfig{DefaultProvider: "gemini"},
		Maintenance: MaintenanceConfig{
			StaleLogSweepSchedule: "@every 5m",
		},
	}
}

// LoadFromFile loads configuration from a TOML file over defaults,
// then applies environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct tags and duration formats
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"http.rate_wait":        c.HTTP.RateWait,
		"http.request_timeout":  c.HTTP.RequestTimeout,
		"http.robots_ttl":       c.HTTP.RobotsTTL,
		"http.circuit_window":   c.HTTP.CircuitWindow,
		"http.circuit_cool_off": c.HTTP.CircuitCoolOff,
		"ranker.timeout":        c.Ranker.Timeout,
		"crawler.stale_log_age": c.Crawler.StaleLogAge,
	}
	for key, val := range durations {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", key, val)
		}
	}

	if c.HTTP.MaxBackoffMs < c.HTTP.InitialBackoffMs {
		return fmt.Errorf("http.max_backoff_ms (%d) must be >= http.initial_backoff_ms (%d)",
			c.HTTP.MaxBackoffMs, c.HTTP.InitialBackoffMs)
	}

	return nil
}

// Duration accessors. Validate guarantees these parse.

func (c *HTTPConfig) RequestTimeoutDuration() time.Duration { return mustDuration(c.RequestTimeout) }
func (c *HTTPConfig) RateWaitDuration() time.Duration       { return mustDuration(c.RateWait) }
func (c *HTTPConfig) RobotsTTLDuration() time.Duration      { return mustDuration(c.RobotsTTL) }
func (c *HTTPConfig) CircuitWindowDuration() time.Duration  { return mustDuration(c.CircuitWindow) }
func (c *HTTPConfig) CircuitCoolOffDuration() time.Duration { return mustDuration(c.CircuitCoolOff) }
func (c *HTTPConfig) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMs) * time.Millisecond
}
func (c *HTTPConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}
func (c *RankerConfig) TimeoutDuration() time.Duration      { return mustDuration(c.Timeout) }
func (c *CrawlerConfig) StaleLogAgeDuration() time.Duration { return mustDuration(c.StaleLogAge) }
func (c *CrawlerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("unvalidated duration %q: %v", s, err))
	}
	return d
}

// applyEnvOverrides applies VENARI_* environment variable overrides
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("VENARI_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("VENARI_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("VENARI_COMPANIES_DIR"); v != "" {
		config.Companies.Dir = v
	}
	if v := os.Getenv("VENARI_PROFILE_PATH"); v != "" {
		config.Profile.Path = v
	}
	if v := os.Getenv("VENARI_CRAWL_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			config.Crawler.IntervalMinutes = n
		}
	}
	if v := os.Getenv("VENARI_MAX_CONCURRENT_CRAWLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			config.Crawler.MaxConcurrentCompanyCrawls = n
		}
	}
	if v := os.Getenv("VENARI_GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("VENARI_ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("VENARI_LLM_PROVIDER"); v != "" {
		config.LLM.DefaultProvider = strings.ToLower(v)
	}
	if v := os.Getenv("VENARI_ROBOTS_RESPECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.HTTP.RobotsRespect = b
		}
	}
}

// IsProduction returns true when running in production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
