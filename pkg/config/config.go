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

const envPrefix = "DICESCRAPER_"

// Config holds all configuration options for the job scraper
type Config struct {
	// Search target and filters
	Site SiteConfig `yaml:"site" json:"site"`

	// Page window and per-page behaviour
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Browser driver settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Detail fetch retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Optional LLM enrichment
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the search being scraped
type SiteConfig struct {
	BaseURL string            `yaml:"base_url" json:"base_url"`
	Keyword string            `yaml:"keyword" json:"keyword"`
	Filters map[string]string `yaml:"filters" json:"filters"`
}

// ScrapeConfig holds the page loop settings
type ScrapeConfig struct {
	Pages                int           `yaml:"pages" json:"pages"`
	JobsPerPage          int           `yaml:"jobs_per_page" json:"jobs_per_page"`
	DetailDelay          time.Duration `yaml:"detail_delay" json:"detail_delay"`
	DetailWorkers        int           `yaml:"detail_workers" json:"detail_workers"`
	ListingTimeout       time.Duration `yaml:"listing_timeout" json:"listing_timeout"`
	DetailTimeout        time.Duration `yaml:"detail_timeout" json:"detail_timeout"`
	ListingReadySelector string        `yaml:"listing_ready_selector" json:"listing_ready_selector"`
	DetailReadySelector  string        `yaml:"detail_ready_selector" json:"detail_ready_selector"`
}

// BrowserConfig holds page fetcher settings
type BrowserConfig struct {
	Engine      string `yaml:"engine" json:"engine"`
	Headless    bool   `yaml:"headless" json:"headless"`
	BrowserType string `yaml:"browser_type" json:"browser_type"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	Prefix       string `yaml:"prefix" json:"prefix"`
	ProgressFile string `yaml:"progress_file" json:"progress_file"`
	SQLite       bool   `yaml:"sqlite" json:"sqlite"`
	Manifest     bool   `yaml:"manifest" json:"manifest"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig controls how often a failed detail fetch is retried
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// ClassifierConfig holds the LLM position-type classifier settings
type ClassifierConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Provider string        `yaml:"provider" json:"provider"`
	Model    string        `yaml:"model" json:"model"`
	BaseURL  string        `yaml:"base_url" json:"base_url"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: "https://www.dice.com/jobs",
			Keyword: "Java Developer",
			Filters: map[string]string{
				"filters.employmentType": "CONTRACTS|THIRD_PARTY",
				"filters.postedDate":     "THREE",
			},
		},
		Scrape: ScrapeConfig{
			Pages:                1,
			JobsPerPage:          5,
			DetailDelay:          10 * time.Second,
			DetailWorkers:        1,
			ListingTimeout:       10 * time.Second,
			DetailTimeout:        30 * time.Second,
			ListingReadySelector: `div[role="listitem"]`,
			DetailReadySelector:  "h1",
		},
		Browser: BrowserConfig{
			Engine:      "playwright",
			Headless:    true,
			BrowserType: "chromium",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		},
		Output: OutputConfig{
			Directory:    "output",
			Prefix:       "dice_jobs",
			ProgressFile: "progress.json",
			SQLite:       false,
			Manifest:     true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         1,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   2 * time.Second,
			MaxDelay:    15 * time.Second,
		},
		Classifier: ClassifierConfig{
			Enabled:  false,
			Provider: "ollama",
			Model:    "llama3.1",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(envPrefix + name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envDuration(name string) (time.Duration, bool) {
	raw := os.Getenv(envPrefix + name)
	if raw == "" {
		return 0, false
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(name string) (bool, bool) {
	raw := os.Getenv(envPrefix + name)
	if raw == "" {
		return false, false
	}
	return strings.ToLower(raw) == "true" || raw == "1", true
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv(envPrefix + "BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if keyword := os.Getenv(envPrefix + "KEYWORD"); keyword != "" {
		c.Site.Keyword = keyword
	}

	if pages, ok := envInt("PAGES"); ok && pages > 0 {
		c.Scrape.Pages = pages
	}
	if perPage, ok := envInt("JOBS_PER_PAGE"); ok && perPage > 0 {
		c.Scrape.JobsPerPage = perPage
	}
	if workers, ok := envInt("DETAIL_WORKERS"); ok && workers > 0 {
		c.Scrape.DetailWorkers = workers
	}
	if delay, ok := envDuration("DETAIL_DELAY"); ok {
		c.Scrape.DetailDelay = delay
	}

	if engine := os.Getenv(envPrefix + "ENGINE"); engine != "" {
		c.Browser.Engine = engine
	}
	if headless, ok := envBool("HEADLESS"); ok {
		c.Browser.Headless = headless
	}

	if outputDir := os.Getenv(envPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if progress := os.Getenv(envPrefix + "PROGRESS_FILE"); progress != "" {
		c.Output.ProgressFile = progress
	}

	if rpm, ok := envInt("REQUESTS_PER_MINUTE"); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}

	if enabled, ok := envBool("CLASSIFIER_ENABLED"); ok {
		c.Classifier.Enabled = enabled
	}
	if provider := os.Getenv(envPrefix + "CLASSIFIER_PROVIDER"); provider != "" {
		c.Classifier.Provider = provider
	}
	if model := os.Getenv(envPrefix + "CLASSIFIER_MODEL"); model != "" {
		c.Classifier.Model = model
	}

	if logLevel := os.Getenv(envPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
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
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".dicescraper.yaml",
		".dicescraper.yml",
		filepath.Join(home, ".config", "dicescraper", "config.yaml"),
		filepath.Join(home, ".config", "dicescraper", "config.yml"),
		filepath.Join(home, ".dicescraper.yaml"),
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

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}

	if c.Scrape.Pages < 0 {
		errs = append(errs, errors.New("pages cannot be negative"))
	}
	if c.Scrape.JobsPerPage <= 0 {
		errs = append(errs, errors.New("jobs per page must be positive"))
	}
	if c.Scrape.DetailWorkers <= 0 {
		errs = append(errs, errors.New("detail workers must be positive"))
	}
	if c.Scrape.DetailWorkers > 8 {
		errs = append(errs, errors.New("detail workers should not exceed 8"))
	}
	if c.Scrape.DetailDelay < 0 {
		errs = append(errs, errors.New("detail delay cannot be negative"))
	}
	if c.Scrape.ListingTimeout <= 0 {
		errs = append(errs, errors.New("listing timeout must be positive"))
	}
	if c.Scrape.DetailTimeout <= 0 {
		errs = append(errs, errors.New("detail timeout must be positive"))
	}

	validEngines := map[string]bool{"playwright": true, "http": true}
	if !validEngines[strings.ToLower(c.Browser.Engine)] {
		errs = append(errs, fmt.Errorf("invalid browser engine %q", c.Browser.Engine))
	}
	validBrowsers := map[string]bool{"chromium": true, "firefox": true, "webkit": true}
	if !validBrowsers[strings.ToLower(c.Browser.BrowserType)] {
		errs = append(errs, fmt.Errorf("invalid browser type %q", c.Browser.BrowserType))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.Prefix == "" {
		errs = append(errs, errors.New("output prefix is required"))
	}
	if c.Output.ProgressFile == "" {
		errs = append(errs, errors.New("progress file is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	if c.Classifier.Enabled {
		validProviders := map[string]bool{"ollama": true, "openai": true, "groq": true}
		if !validProviders[strings.ToLower(c.Classifier.Provider)] {
			errs = append(errs, fmt.Errorf("invalid classifier provider %q", c.Classifier.Provider))
		}
		if c.Classifier.Model == "" {
			errs = append(errs, errors.New("classifier model is required"))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
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

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if pages, ok := flags["pages"].(int); ok && pages >= 0 {
		c.Scrape.Pages = pages
	}
	if perPage, ok := flags["jobs-per-page"].(int); ok && perPage > 0 {
		c.Scrape.JobsPerPage = perPage
	}
	if workers, ok := flags["detail-workers"].(int); ok && workers > 0 {
		c.Scrape.DetailWorkers = workers
	}
	if delay, ok := flags["detail-delay"].(time.Duration); ok && delay >= 0 {
		c.Scrape.DetailDelay = delay
	}
	if keyword, ok := flags["keyword"].(string); ok && keyword != "" {
		c.Site.Keyword = keyword
	}
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if progress, ok := flags["progress-file"].(string); ok && progress != "" {
		c.Output.ProgressFile = progress
	}
	if engine, ok := flags["engine"].(string); ok && engine != "" {
		c.Browser.Engine = engine
	}
	if headed, ok := flags["headed"].(bool); ok && headed {
		c.Browser.Headless = false
	}
	if classify, ok := flags["classify"].(bool); ok && classify {
		c.Classifier.Enabled = true
	}
	if sqlite, ok := flags["sqlite"].(bool); ok && sqlite {
		c.Output.SQLite = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Query returns the search filters including the keyword as the "q" parameter
func (c *Config) Query() map[string]string {
	q := make(map[string]string, len(c.Site.Filters)+1)
	for k, v := range c.Site.Filters {
		q[k] = v
	}
	if c.Site.Keyword != "" {
		q["q"] = c.Site.Keyword
	}
	return q
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dicescraper.env"))

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
