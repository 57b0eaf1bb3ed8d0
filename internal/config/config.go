// Package config provides configuration loading for journeyd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables, with hardcoded defaults underneath.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete journeyd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Stitch        StitchConfig        `koanf:"stitch"`
	Analysis      AnalysisConfig      `koanf:"analysis"`
	NATS          NATSConfig          `koanf:"nats"`
	Ingest        IngestConfig        `koanf:"ingest"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StitchConfig holds journey stitching configuration.
type StitchConfig struct {
	// Window is the active-journey window: a journey accepts new touchpoints
	// only while the gap since its last touchpoint stays under this.
	Window time.Duration `koanf:"window"`
}

// AnalysisConfig holds the periodic job intervals.
type AnalysisConfig struct {
	DropOffInterval      time.Duration `koanf:"dropoff_interval"`
	PathMiningInterval   time.Duration `koanf:"path_mining_interval"`
	OptimizationInterval time.Duration `koanf:"optimization_interval"`

	// StaleAfter is how long the health check tolerates no completed
	// analysis cycle before reporting degraded.
	StaleAfter time.Duration `koanf:"stale_after"`
}

// NATSConfig holds the outbound event broker configuration. An empty URL
// disables event publishing.
type NATSConfig struct {
	URL string `koanf:"url"`
}

// IngestConfig holds ingestion rate limiting configuration.
type IngestConfig struct {
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Development bool   `koanf:"development"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Stitch.Window <= 0 {
		return errors.New("stitch window must be positive")
	}
	if c.Analysis.DropOffInterval <= 0 || c.Analysis.PathMiningInterval <= 0 || c.Analysis.OptimizationInterval <= 0 {
		return errors.New("analysis intervals must be positive")
	}
	if c.Analysis.StaleAfter <= 0 {
		return errors.New("analysis stale_after must be positive")
	}
	if c.Ingest.RatePerSecond <= 0 || c.Ingest.Burst < 1 {
		return errors.New("ingest rate limit must allow at least one request")
	}
	if c.Observability.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9092
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Stitch.Window == 0 {
		cfg.Stitch.Window = 30 * time.Minute
	}
	if cfg.Analysis.DropOffInterval == 0 {
		cfg.Analysis.DropOffInterval = 10 * time.Minute
	}
	if cfg.Analysis.PathMiningInterval == 0 {
		cfg.Analysis.PathMiningInterval = 60 * time.Minute
	}
	if cfg.Analysis.OptimizationInterval == 0 {
		cfg.Analysis.OptimizationInterval = 4 * time.Hour
	}
	if cfg.Analysis.StaleAfter == 0 {
		cfg.Analysis.StaleAfter = 30 * time.Minute
	}
	if cfg.Ingest.RatePerSecond == 0 {
		cfg.Ingest.RatePerSecond = 200
	}
	if cfg.Ingest.Burst == 0 {
		cfg.Ingest.Burst = 400
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "journeyd"
	}
}
