package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScreenConfig holds the thresholds for the lightweight bulk screen.
type ScreenConfig struct {
	MinPrice        float64  `yaml:"min_price"`
	MinVolume       float64  `yaml:"min_volume"`
	MinCap          float64  `yaml:"min_cap"`
	MinCurrentRatio float64  `yaml:"min_current_ratio"`
	MaxPERatio      float64  `yaml:"max_pe_ratio"`
	ExcludedSectors []string `yaml:"excluded_sectors"`
	BatchSize       int      `yaml:"batch_size"`
}

// AnalyzerConfig holds the thresholds for the deep financial analysis.
type AnalyzerConfig struct {
	CacheExpiryDays         int     `yaml:"cache_expiry_days"`
	FortressMarginThreshold float64 `yaml:"fortress_margin_threshold"`
	MinInterestCoverage     float64 `yaml:"min_interest_coverage"`
	MinROIC                 float64 `yaml:"min_roic"`
}

// CacheExpiry returns the cache expiry window as a duration.
func (a AnalyzerConfig) CacheExpiry() time.Duration {
	return time.Duration(a.CacheExpiryDays) * 24 * time.Hour
}

// TrendConfig holds the settings for the long-term trend filter.
type TrendConfig struct {
	SMAPeriod       int           `yaml:"sma_period"`
	Lookback        time.Duration `yaml:"lookback"`
	MinObservations int           `yaml:"min_observations"`
}

// ProviderConfig holds credentials and pacing for the external data providers.
type ProviderConfig struct {
	RequestDelay    time.Duration `yaml:"request_delay"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	AlpacaAPIKey    string        `yaml:"alpaca_api_key"`
	AlpacaAPISecret string        `yaml:"alpaca_api_secret"`
}

type Config struct {
	Screen    ScreenConfig   `yaml:"screen"`
	Analyzer  AnalyzerConfig `yaml:"analyzer"`
	Trend     TrendConfig    `yaml:"trend"`
	Providers ProviderConfig `yaml:"providers"`
	CachePath string         `yaml:"cache_path"`
	OutputDir string         `yaml:"output_dir"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Screen: ScreenConfig{
			MinPrice:        5.0,
			MinVolume:       200000,
			MinCap:          300000000,
			MinCurrentRatio: 1.0,
			MaxPERatio:      40.0,
			ExcludedSectors: []string{"Financial", "Real Estate"},
			BatchSize:       500,
		},
		Analyzer: AnalyzerConfig{
			CacheExpiryDays:         7,
			FortressMarginThreshold: 0.05,
			MinInterestCoverage:     3.0,
			MinROIC:                 0.10,
		},
		Trend: TrendConfig{
			SMAPeriod:       200,
			Lookback:        365 * 24 * time.Hour,
			MinObservations: 200,
		},
		Providers: ProviderConfig{
			RequestDelay: 250 * time.Millisecond,
			HTTPTimeout:  30 * time.Second,
		},
		CachePath: "data/financial_cache.json",
		OutputDir: "data/screendata",
	}
}

// Load reads and parses a YAML configuration file, applies environment
// overrides, and validates the result. A missing file is not an error: the
// defaults are returned so the pipeline can run unconfigured.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Credentials come from the environment when set
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Providers.AlpacaAPIKey = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		c.Providers.AlpacaAPISecret = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Screen.BatchSize <= 0 {
		return fmt.Errorf("screen.batch_size must be positive, got %d", c.Screen.BatchSize)
	}
	if c.Screen.BatchSize > 500 {
		return fmt.Errorf("screen.batch_size must not exceed the provider bulk-query limit of 500, got %d", c.Screen.BatchSize)
	}
	if c.Analyzer.CacheExpiryDays <= 0 {
		return fmt.Errorf("analyzer.cache_expiry_days must be positive, got %d", c.Analyzer.CacheExpiryDays)
	}
	if c.Trend.SMAPeriod <= 0 {
		return fmt.Errorf("trend.sma_period must be positive, got %d", c.Trend.SMAPeriod)
	}
	if c.Trend.MinObservations < c.Trend.SMAPeriod {
		return fmt.Errorf("trend.min_observations (%d) must be at least trend.sma_period (%d)",
			c.Trend.MinObservations, c.Trend.SMAPeriod)
	}
	if c.CachePath == "" {
		return fmt.Errorf("cache_path is required")
	}
	return nil
}
