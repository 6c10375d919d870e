package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Profile sources understood by the scraper
const (
	ProfileSourceAPI  = "api"
	ProfileSourceHTML = "html"
)

// Config holds all configuration options for the extractor
type Config struct {
	// Source endpoints and identifiers
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Fetch loop settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Outbound proxy pool
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for the HTML profile fetcher
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds source-specific configuration
type InstagramConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	AppID     string `yaml:"app_id" json:"app_id"`
	DocID     string `yaml:"doc_id" json:"doc_id"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// Headers are extra headers sent with API requests
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// FetchConfig holds settings for the profile and post fetchers
type FetchConfig struct {
	ProfileSource  string        `yaml:"profile_source" json:"profile_source"`
	MaxPosts       int           `yaml:"max_posts" json:"max_posts"`
	PageDelay      time.Duration `yaml:"page_delay" json:"page_delay"`
	ProfileTimeout time.Duration `yaml:"profile_timeout" json:"profile_timeout"`
	PageTimeout    time.Duration `yaml:"page_timeout" json:"page_timeout"`
	SkipPosts      bool          `yaml:"skip_posts" json:"skip_posts"`
}

// ProxyConfig holds the ordered proxy endpoint list
type ProxyConfig struct {
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry timings
type RetryConfig struct {
	MaxAttempts        int           `yaml:"max_attempts" json:"max_attempts"`
	RateLimitDelay     time.Duration `yaml:"rate_limit_delay" json:"rate_limit_delay"`
	TransientBaseDelay time.Duration `yaml:"transient_base_delay" json:"transient_base_delay"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	Pretty    bool   `yaml:"pretty" json:"pretty"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			BaseURL:   "https://www.instagram.com",
			AppID:     "936619743392459",
			DocID:     "34579740524958711",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		},
		Fetch: FetchConfig{
			ProfileSource:  ProfileSourceAPI,
			MaxPosts:       100,
			PageDelay:      2 * time.Second,
			ProfileTimeout: 10 * time.Second,
			PageTimeout:    15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0, // 0 disables pacing beyond the page delay
			BurstSize:         1,
		},
		Retry: RetryConfig{
			MaxAttempts:        3,
			RateLimitDelay:     5 * time.Second,
			TransientBaseDelay: 1 * time.Second,
		},
		Output: OutputConfig{
			Directory: ".",
			Pretty:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IGEXTRACT_BASE_URL"); v != "" {
		c.Instagram.BaseURL = v
	}
	if v := os.Getenv("IGEXTRACT_DOC_ID"); v != "" {
		c.Instagram.DocID = v
	}
	if v := os.Getenv("IGEXTRACT_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}
	if v := os.Getenv("IGEXTRACT_PROFILE_SOURCE"); v != "" {
		c.Fetch.ProfileSource = strings.ToLower(v)
	}
	if v := os.Getenv("IGEXTRACT_MAX_POSTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGEXTRACT_MAX_POSTS: %w", err))
		} else {
			c.Fetch.MaxPosts = n
		}
	}
	if v := os.Getenv("IGEXTRACT_PAGE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGEXTRACT_PAGE_DELAY: %w", err))
		} else {
			c.Fetch.PageDelay = d
		}
	}
	if v := os.Getenv("IGEXTRACT_PROXIES"); v != "" {
		c.Proxy.Endpoints = splitList(v)
	}
	if v := os.Getenv("IGEXTRACT_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IGEXTRACT_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("IGEXTRACT_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("IGEXTRACT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("IGEXTRACT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".igextract.yaml",
		".igextract.yml",
		filepath.Join(home, ".config", "igextract", "config.yaml"),
		filepath.Join(home, ".config", "igextract", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" {
		errs = append(errs, errors.New("instagram base URL is required"))
	}
	if c.Instagram.DocID == "" {
		errs = append(errs, errors.New("timeline doc id is required"))
	}

	switch c.Fetch.ProfileSource {
	case ProfileSourceAPI, ProfileSourceHTML:
	default:
		errs = append(errs, fmt.Errorf("unknown profile source %q", c.Fetch.ProfileSource))
	}
	if c.Fetch.MaxPosts < 0 {
		errs = append(errs, errors.New("max posts cannot be negative"))
	}
	if c.Fetch.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}
	if c.Fetch.ProfileTimeout <= 0 || c.Fetch.PageTimeout <= 0 {
		errs = append(errs, errors.New("request timeouts must be positive"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	validFormats := map[string]bool{"auto": true, "console": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["max-posts"].(int); ok {
		c.Fetch.MaxPosts = v
	}
	if v, ok := flags["profile-source"].(string); ok && v != "" {
		c.Fetch.ProfileSource = strings.ToLower(v)
	}
	if v, ok := flags["page-delay"].(time.Duration); ok {
		c.Fetch.PageDelay = v
	}
	if v, ok := flags["skip-posts"].(bool); ok {
		c.Fetch.SkipPosts = v
	}
	if v, ok := flags["proxy"].([]string); ok && len(v) > 0 {
		c.Proxy.Endpoints = v
	}
	if v, ok := flags["requests-per-minute"].(int); ok {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["max-attempts"].(int); ok && v > 0 {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igextract.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
