// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
	"github.com/tomtom215/eventbnb/internal/temporal"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables (see envTransformFunc)
//
// Command-line flags are applied by cmd/eventbnb after loading and before
// Validate.
type Config struct {
	Matching MatchingConfig `koanf:"matching"`
	Model    ModelConfig    `koanf:"model"`
	Input    InputConfig    `koanf:"input"`
	Store    StoreConfig    `koanf:"store"`
	Describe DescribeConfig `koanf:"describe"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// MatchingConfig holds the listing-event join parameters.
type MatchingConfig struct {
	// RadiusKm is the maximum listing-venue distance.
	// Default: 10
	RadiusKm float64 `koanf:"radius_km" validate:"gt=0,lte=1000"`

	// DateWindow widens event dates before the availability overlap test.
	DateWindow temporal.Window `koanf:"date_window"`

	// MissingAvailability is "exclude" or "always".
	// Default: exclude
	MissingAvailability string `koanf:"missing_availability" validate:"oneof=exclude always"`

	// Index selects the geospatial index: grid or linear.
	// Default: grid
	Index string `koanf:"index" validate:"oneof=grid linear"`

	// CellSizeKm is the grid cell size. 0 uses the index default.
	CellSizeKm float64 `koanf:"cell_size_km" validate:"gte=0"`

	// Workers bounds matching and scoring parallelism. 0 uses runtime.NumCPU().
	Workers int `koanf:"workers" validate:"gte=0,lte=1024"`

	// MaxListings caps listings per run in ID order. 0 means no limit.
	MaxListings int `koanf:"max_listings" validate:"gte=0"`

	// AsOf is the YYYY-MM-DD reference date. Empty means today (UTC).
	AsOf string `koanf:"as_of"`

	// UpcomingOnly drops events that ended before AsOf.
	UpcomingOnly bool `koanf:"upcoming_only"`
}

// ModelConfig selects and trains price models.
type ModelConfig struct {
	// Dir holds versioned model artifacts.
	// Default: ./models
	Dir string `koanf:"dir" validate:"required"`

	// Name is the artifact name for training and latest-version lookups.
	// Default: ridge
	Name string `koanf:"name" validate:"required"`

	// Version is "latest", a number, "name@vN", or "baseline".
	// Default: latest
	Version string `koanf:"version"`

	// AllowBaseline scores with the heuristic baseline when no trained model
	// exists and the latest version was requested.
	// Default: true
	AllowBaseline bool `koanf:"allow_baseline"`

	// L2 is the ridge regularization strength used by train.
	// Default: 1.0
	L2 float64 `koanf:"l2" validate:"gte=0"`

	// MaxZ rejects inputs further than this many deviations from training.
	// Default: 8.0
	MaxZ float64 `koanf:"max_z" validate:"gte=0"`

	// MaxMultiplier bounds predictions to base * [1/m, m].
	// Default: 5.0
	MaxMultiplier float64 `koanf:"max_multiplier" validate:"gte=0"`

	// Keep is how many versions train keeps after saving. 0 keeps all.
	Keep int `koanf:"keep" validate:"gte=0"`
}

// InputConfig locates ingestion sources. A warehouse path takes precedence
// over the CSV files.
type InputConfig struct {
	Listings string `koanf:"listings"`
	Events   string `koanf:"events"`
	Samples  string `koanf:"samples"`

	// Warehouse is a DuckDB database holding listing and event tables.
	Warehouse     string `koanf:"warehouse"`
	ListingsTable string `koanf:"listings_table"`
	EventsTable   string `koanf:"events_table"`
}

// StoreConfig configures the pair-table store.
type StoreConfig struct {
	// Driver is duckdb, postgres, or sqlite3.
	// Default: duckdb
	Driver string `koanf:"driver" validate:"required"`

	// DSN is a file path for duckdb/sqlite3 or a connection string for postgres.
	// Default: ./data/eventbnb.duckdb
	DSN string `koanf:"dsn" validate:"required"`
}

// DescribeConfig configures the description generator. Generation is
// available only when an API key is set.
type DescribeConfig struct {
	APIKey     string        `koanf:"api_key"`
	Model      string        `koanf:"model" validate:"required"`
	BaseURL    string        `koanf:"base_url" validate:"required"`
	MaxRetries int           `koanf:"max_retries" validate:"gte=1,lte=20"`
	Cooldown   time.Duration `koanf:"cooldown" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`

	// CachePath is the BadgerDB directory for generated descriptions.
	// Empty disables caching.
	CachePath string        `koanf:"cache_path"`
	CacheTTL  time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// Enabled reports whether an API key is configured.
func (d *DescribeConfig) Enabled() bool {
	return strings.TrimSpace(d.APIKey) != ""
}

// ServerConfig configures the lookup HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// RefreshInterval re-runs the pipeline while serving. Zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`
}

// Addr returns host:port.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// LoggerConfig converts to the logging package configuration.
func (l *LoggingConfig) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	cfg.Output = os.Stderr
	return cfg
}

// AsOfDate parses Matching.AsOf. The zero time means "today".
func (c *Config) AsOfDate() (time.Time, error) {
	s := strings.TrimSpace(c.Matching.AsOf)
	if s == "" || s == "today" {
		return time.Time{}, nil
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("matching.as_of must be YYYY-MM-DD, got %q", c.Matching.AsOf)
	}
	return t, nil
}

// PipelineConfig builds the pipeline configuration from Matching.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	asOf, err := c.AsOfDate()
	if err != nil {
		return pipeline.Config{}, err
	}
	policy, err := temporal.ParsePolicy(c.Matching.MissingAvailability)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		RadiusKm:            c.Matching.RadiusKm,
		Window:              c.Matching.DateWindow,
		MissingAvailability: policy,
		Index:               c.Matching.Index,
		CellSizeKm:          c.Matching.CellSizeKm,
		Workers:             c.Matching.Workers,
		MaxListings:         c.Matching.MaxListings,
		AsOf:                asOf,
		UpcomingOnly:        c.Matching.UpcomingOnly,
	}, nil
}
