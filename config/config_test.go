package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading default config
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify defaults
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, 24*time.Hour, cfg.Sync.FetchInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Remote.SignInURL)
	assert.NotEmpty(t, cfg.Remote.ScoresURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ARCADESYNC_STORAGE_ADAPTER", "redis")
	t.Setenv("ARCADESYNC_SYNC_FETCH_INTERVAL", "1h")
	t.Setenv("ARCADESYNC_REMOTE_PAGE_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Adapter)
	assert.Equal(t, time.Hour, cfg.Sync.FetchInterval)
	assert.Equal(t, 10, cfg.Remote.PageSize)
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	configContent := `{
		"environment": "testing",
		"server": {
			"address": ":9090"
		},
		"storage": {
			"adapter": "memory"
		},
		"sync": {
			"fetch_interval": 3600000000000
		}
	}`

	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Load config from file
	cfg, err := LoadFromFile(tmpFile.Name())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify loaded values
	assert.Equal(t, EnvTesting, cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Adapter)
	assert.Equal(t, time.Hour, cfg.Sync.FetchInterval)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return DefaultConfig() }

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"empty environment", func(c *Config) { c.Environment = "" }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"unknown adapter", func(c *Config) { c.Storage.Adapter = "cassandra" }, true},
		{"zero fetch interval", func(c *Config) { c.Sync.FetchInterval = 0 }, true},
		{"missing remote URL", func(c *Config) { c.Remote.SignInURL = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"rate limit enabled without rpm", func(c *Config) {
			c.Security.EnableRateLimit = true
			c.Security.RateLimit.RequestsPerMinute = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.SQL.DSN = "postgres://user:hunter2@db/scores"
	cfg.Storage.Redis.Password = "hunter2"

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "[REDACTED]")
}

func TestValidateConfigPath(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config_test_*.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	_, _ = tmpFile.WriteString("{}")
	tmpFile.Close()

	assert.NoError(t, validateConfigPath(tmpFile.Name()))
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("nonexistent.json"))
	assert.Error(t, validateConfigPath("config.txt"))
}
