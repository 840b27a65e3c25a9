package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Provider.BaseURL = "https://data.example.com/api"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http", cfg.Provider.Name)
	assert.Equal(t, 20, cfg.Fetcher.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetcher.RetryDelay)
	assert.Equal(t, 5, cfg.Fetcher.MaxWorkers)
	assert.InDelta(t, 1.3, cfg.Fetcher.SafetyBuffer, 1e-9)
	assert.True(t, cfg.Fetcher.ValidateData)
	assert.False(t, cfg.Fetcher.Strict)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "disk", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)

	assert.Equal(t, []string{"csv", "parquet"}, cfg.Export.Formats)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid http", func(c *Config) {}, true},
		{"valid mock without url", func(c *Config) { c.Provider.Name = "mock"; c.Provider.BaseURL = "" }, true},
		{"http without url", func(c *Config) { c.Provider.BaseURL = "" }, false},
		{"empty provider name", func(c *Config) { c.Provider.Name = "" }, false},
		{"zero timeout", func(c *Config) { c.Provider.Timeout = 0 }, false},
		{"negative rate limit", func(c *Config) { c.Provider.RateLimit = -time.Second }, false},
		{"zero retry attempts", func(c *Config) { c.Fetcher.RetryAttempts = 0 }, false},
		{"backoff below one", func(c *Config) { c.Fetcher.RetryBackoff = 0.5 }, false},
		{"zero workers", func(c *Config) { c.Fetcher.MaxWorkers = 0 }, false},
		{"buffer below one", func(c *Config) { c.Fetcher.SafetyBuffer = 0.9 }, false},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, false},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }, false},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, false},
		{"cache disabled skips checks", func(c *Config) { c.Cache.Enabled = false; c.Cache.Backend = "bogus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `provider:
  name: http
  base_url: https://data.example.com/api
  timeout: 30s
fetcher:
  retry_attempts: 5
  max_workers: 10
cache:
  backend: memory
  ttl: 1h
export:
  formats: ["json"]
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://data.example.com/api", cfg.Provider.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 5, cfg.Fetcher.RetryAttempts)
	assert.Equal(t, 10, cfg.Fetcher.MaxWorkers)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"json"}, cfg.Export.Formats)
	assert.Equal(t, "debug", cfg.Logger.Level)

	// 未出现的键保持默认值
	assert.InDelta(t, 1.3, cfg.Fetcher.SafetyBuffer, 1e-9)
	assert.Equal(t, 500*time.Millisecond, cfg.Fetcher.RetryDelay)
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `provider:
  name: http
  base_url: https://data.example.com/api
fetcher:
  retry_attempts: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSetters(t *testing.T) {
	cfg := Default().
		SetRetry(3, time.Second, 2.0).
		SetMaxWorkers(8).
		SetCacheTTL(time.Minute).
		SetStrict(true).
		SetLogLevel("warn")

	assert.Equal(t, 3, cfg.Fetcher.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Fetcher.RetryDelay)
	assert.InDelta(t, 2.0, cfg.Fetcher.RetryBackoff, 1e-9)
	assert.Equal(t, 8, cfg.Fetcher.MaxWorkers)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Fetcher.Strict)
	assert.Equal(t, "warn", cfg.Logger.Level)
}
