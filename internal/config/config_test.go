package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9092, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Stitch.Window)
	assert.Equal(t, 10*time.Minute, cfg.Analysis.DropOffInterval)
	assert.Equal(t, 60*time.Minute, cfg.Analysis.PathMiningInterval)
	assert.Equal(t, 4*time.Hour, cfg.Analysis.OptimizationInterval)
	assert.Equal(t, 30*time.Minute, cfg.Analysis.StaleAfter)
	assert.Equal(t, "", cfg.NATS.URL)
	assert.Equal(t, 200.0, cfg.Ingest.RatePerSecond)
	assert.Equal(t, 400, cfg.Ingest.Burst)
	assert.Equal(t, "journeyd", cfg.Observability.ServiceName)
	assert.False(t, cfg.Observability.Development)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8088
stitch:
  window: 45m
analysis:
  dropoff_interval: 5m
nats:
  url: nats://localhost:4222
observability:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 45*time.Minute, cfg.Stitch.Window)
	assert.Equal(t, 5*time.Minute, cfg.Analysis.DropOffInterval)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.True(t, cfg.Observability.Development)

	// Unset sections still get defaults.
	assert.Equal(t, 60*time.Minute, cfg.Analysis.PathMiningInterval)
	assert.Equal(t, "journeyd", cfg.Observability.ServiceName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8088\n"), 0o644))

	t.Setenv("JOURNEYD_SERVER_PORT", "7777")
	t.Setenv("JOURNEYD_STITCH_WINDOW", "15m")
	t.Setenv("JOURNEYD_ANALYSIS_DROPOFF_INTERVAL", "2m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Stitch.Window)
	assert.Equal(t, 2*time.Minute, cfg.Analysis.DropOffInterval)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -time.Second }, "shutdown timeout"},
		{"zero window", func(c *Config) { c.Stitch.Window = 0 }, "stitch window"},
		{"zero interval", func(c *Config) { c.Analysis.PathMiningInterval = 0 }, "analysis intervals"},
		{"zero stale", func(c *Config) { c.Analysis.StaleAfter = 0 }, "stale_after"},
		{"zero rate", func(c *Config) { c.Ingest.RatePerSecond = 0 }, "rate limit"},
		{"empty service name", func(c *Config) { c.Observability.ServiceName = "" }, "service name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
