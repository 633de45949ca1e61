// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package main is the eventbnb command.
//
// EventBnb matches rental listings to nearby events whose dates overlap the
// listing's availability, predicts an event-adjusted nightly price for each
// pair, and serves the results.
//
// # Commands
//
//	eventbnb run                       ingest, match, score and persist pairs
//	eventbnb train                     fit a ridge model from a samples CSV
//	eventbnb models                    list stored model versions
//	eventbnb lookup <listing-id>       print the top matches for a listing
//	eventbnb describe <listing-id>     revise a description for an event
//	eventbnb serve                     supervised HTTP lookup API
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Command-line flags
//   - Environment variables (RADIUS_KM, LISTINGS_PATH, GEMINI_API_KEY, ...)
//   - Config file (--config, CONFIG_PATH, or ./eventbnb.yaml)
//   - Built-in defaults
//
// See internal/config for the full list.
//
// # Example Usage
//
//	export LISTINGS_PATH=listings.csv EVENTS_PATH=events.csv
//	eventbnb run --radius 10 --csv pairs.csv
//	eventbnb lookup 1 --limit 5
//	eventbnb serve
//
// The serve command documents its API at /swagger/index.html.
//
// @title EventBnb API
// @version 1.0
// @description Lookup API for listings matched to nearby events with event-adjusted nightly prices.
// @description Error responses use the envelope {"status": "error", "error": {"code": "...", "message": "..."}}.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/eventbnb
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
package main

import (
	"os"

	_ "github.com/tomtom215/eventbnb/docs" // Import generated swagger docs
)

func main() {
	os.Exit(execute(os.Args[1:]))
}
