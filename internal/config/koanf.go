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

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/eventbnb/internal/describe"
	"github.com/tomtom215/eventbnb/internal/geo"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/store"
	"github.com/tomtom215/eventbnb/internal/temporal"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"eventbnb.yaml",
	"config.yaml",
	"config.yml",
	"/etc/eventbnb/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	ridge := pricing.DefaultRidgeConfig()
	return &Config{
		Matching: MatchingConfig{
			RadiusKm:            10,
			DateWindow:          temporal.Window{Before: 0, After: 0},
			MissingAvailability: string(temporal.DefaultPolicy),
			Index:               geo.KindGrid,
			CellSizeKm:          geo.DefaultCellSizeKm,
			Workers:             0,
			MaxListings:         0,
			AsOf:                "",
			UpcomingOnly:        false,
		},
		Model: ModelConfig{
			Dir:           "./models",
			Name:          pricing.DefaultModelName,
			Version:       "latest",
			AllowBaseline: true,
			L2:            ridge.Lambda,
			MaxZ:          ridge.MaxZ,
			MaxMultiplier: ridge.MaxMultiplier,
			Keep:          0,
		},
		Input: InputConfig{
			Listings:      "",
			Events:        "",
			Samples:       "",
			Warehouse:     "",
			ListingsTable: "listings",
			EventsTable:   "events",
		},
		Store: StoreConfig{
			Driver: string(store.DialectDuckDB),
			DSN:    "./data/eventbnb.duckdb",
		},
		Describe: DescribeConfig{
			APIKey:     "",
			Model:      describe.DefaultModel,
			BaseURL:    describe.DefaultBaseURL,
			MaxRetries: describe.DefaultMaxRetries,
			Cooldown:   describe.DefaultCooldown,
			Timeout:    describe.DefaultTimeout,
			CachePath:  "./data/describe-cache",
			CacheTTL:   describe.DefaultCacheTTL,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration from defaults, the first config file
// found, and environment variables, then validates it.
func LoadWithKoanf() (*Config, error) {
	return Load("")
}

// Load is LoadWithKoanf with an explicit config file path. An explicit path
// that does not exist is an error; an empty path searches the defaults.
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated layers the sources like Load but skips Validate so
// callers can apply command-line overrides first.
func LoadUnvalidated(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := path
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	} else {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RADIUS_KM -> matching.radius_km
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set by env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Matching
	"radius_km":            "matching.radius_km",
	"date_window_before":   "matching.date_window.before",
	"date_window_after":    "matching.date_window.after",
	"missing_availability": "matching.missing_availability",
	"index_kind":           "matching.index",
	"grid_cell_size_km":    "matching.cell_size_km",
	"match_workers":        "matching.workers",
	"max_listings":         "matching.max_listings",
	"as_of":                "matching.as_of",
	"upcoming_only":        "matching.upcoming_only",

	// Model
	"model_dir":            "model.dir",
	"model_name":           "model.name",
	"model_version":        "model.version",
	"allow_baseline_model": "model.allow_baseline",
	"model_l2":             "model.l2",
	"model_max_z":          "model.max_z",
	"model_max_multiplier": "model.max_multiplier",
	"model_keep":           "model.keep",

	// Input
	"listings_path":  "input.listings",
	"events_path":    "input.events",
	"samples_path":   "input.samples",
	"warehouse_path": "input.warehouse",
	"listings_table": "input.listings_table",
	"events_table":   "input.events_table",

	// Store
	"store_driver": "store.driver",
	"store_dsn":    "store.dsn",

	// Describe
	"gemini_api_key":       "describe.api_key",
	"gemini_model":         "describe.model",
	"gemini_base_url":      "describe.base_url",
	"describe_max_retries": "describe.max_retries",
	"describe_cooldown":    "describe.cooldown",
	"describe_timeout":     "describe.timeout",
	"describe_cache_path":  "describe.cache_path",
	"describe_cache_ttl":   "describe.cache_ttl",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"refresh_interval":      "server.refresh_interval",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
