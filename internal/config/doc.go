// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package config loads EventBnb configuration with Koanf v2.

# Sources

Configuration is layered, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. A YAML file: CONFIG_PATH, or the first of eventbnb.yaml, config.yaml,
    config.yml, /etc/eventbnb/config.yaml
 3. Environment variables with an explicit name mapping

Command-line flags are applied by the CLI on top of the result.

# Example File

	matching:
	  radius_km: 10
	  date_window:
	    before: 1
	    after: 1
	  missing_availability: exclude
	  index: grid
	model:
	  dir: ./models
	  version: latest
	store:
	  driver: duckdb
	  dsn: ./data/eventbnb.duckdb
	describe:
	  model: gemini-2.5-flash
	server:
	  port: 8080

# Environment Variables

Matching:
  - RADIUS_KM, DATE_WINDOW_BEFORE, DATE_WINDOW_AFTER
  - MISSING_AVAILABILITY (exclude|always), INDEX_KIND (grid|linear)
  - GRID_CELL_SIZE_KM, MATCH_WORKERS, MAX_LISTINGS, AS_OF, UPCOMING_ONLY

Model:
  - MODEL_DIR, MODEL_NAME, MODEL_VERSION, ALLOW_BASELINE_MODEL
  - MODEL_L2, MODEL_MAX_Z, MODEL_MAX_MULTIPLIER, MODEL_KEEP

Input and store:
  - LISTINGS_PATH, EVENTS_PATH, SAMPLES_PATH
  - WAREHOUSE_PATH, LISTINGS_TABLE, EVENTS_TABLE
  - STORE_DRIVER (duckdb|postgres|sqlite3), STORE_DSN

Description generator:
  - GEMINI_API_KEY, GEMINI_MODEL, GEMINI_BASE_URL
  - DESCRIBE_MAX_RETRIES, DESCRIBE_COOLDOWN, DESCRIBE_TIMEOUT
  - DESCRIBE_CACHE_PATH, DESCRIBE_CACHE_TTL

Server and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - CORS_ORIGINS (comma-separated), RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - REFRESH_INTERVAL (re-run the pipeline while serving; 0 disables)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Durations use Go syntax ("8s", "168h").
*/
package config
