package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestCacheExpiry(t *testing.T) {
	a := AnalyzerConfig{CacheExpiryDays: 7}
	assert.Equal(t, 7*24*time.Hour, a.CacheExpiry())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Screen, c.Screen)
	assert.Equal(t, Default().Analyzer, c.Analyzer)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
screen:
  min_price: 10
  min_volume: 500000
  min_cap: 1000000000
  min_current_ratio: 1.5
  max_pe_ratio: 25
  excluded_sectors: ["Utilities"]
  batch_size: 100
analyzer:
  cache_expiry_days: 3
  fortress_margin_threshold: 0.08
  min_interest_coverage: 4
  min_roic: 0.12
cache_path: /tmp/cache.json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10.0, c.Screen.MinPrice)
	assert.Equal(t, []string{"Utilities"}, c.Screen.ExcludedSectors)
	assert.Equal(t, 100, c.Screen.BatchSize)
	assert.Equal(t, 3, c.Analyzer.CacheExpiryDays)
	assert.Equal(t, "/tmp/cache.json", c.CachePath)

	// Sections not present in the file keep their defaults.
	assert.Equal(t, Default().Trend, c.Trend)
}

func TestLoadEnvironmentCredentials(t *testing.T) {
	t.Setenv("ALPACA_API_KEY", "key-from-env")
	t.Setenv("ALPACA_SECRET_KEY", "secret-from-env")

	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", c.Providers.AlpacaAPIKey)
	assert.Equal(t, "secret-from-env", c.Providers.AlpacaAPISecret)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Screen.BatchSize = 0 }},
		{"batch size above provider limit", func(c *Config) { c.Screen.BatchSize = 501 }},
		{"zero cache expiry", func(c *Config) { c.Analyzer.CacheExpiryDays = 0 }},
		{"zero sma period", func(c *Config) { c.Trend.SMAPeriod = 0 }},
		{"observations below sma period", func(c *Config) { c.Trend.MinObservations = 100 }},
		{"empty cache path", func(c *Config) { c.CachePath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("screen:\n  batch_size: 9999\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
