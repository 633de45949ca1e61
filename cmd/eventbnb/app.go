// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/eventbnb/internal/describe"
	"github.com/tomtom215/eventbnb/internal/ingest"
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/store"
)

// inputs is one ingestion pass.
type inputs struct {
	Listings       []models.Listing
	Events         []models.Event
	ListingsReport *ingest.Report
	EventsReport   *ingest.Report
}

// loadInputs reads listings and events from the warehouse when one is
// configured, otherwise from the CSV files.
func (a *app) loadInputs(ctx context.Context) (*inputs, error) {
	in := a.cfg.Input
	if in.Warehouse != "" {
		src, err := ingest.OpenDuckDB(in.Warehouse)
		if err != nil {
			return nil, err
		}
		defer func() { _ = src.Close() }() //nolint:errcheck // read-only source
		if in.ListingsTable != "" {
			src.Tables.Listings = in.ListingsTable
		}
		if in.EventsTable != "" {
			src.Tables.Events = in.EventsTable
		}

		var out inputs
		if out.Listings, out.ListingsReport, err = src.Listings(ctx); err != nil {
			return nil, err
		}
		if out.Events, out.EventsReport, err = src.Events(ctx); err != nil {
			return nil, err
		}
		return &out, nil
	}

	if in.Listings == "" || in.Events == "" {
		return nil, errors.New("no input configured: set --listings and --events (LISTINGS_PATH, EVENTS_PATH) or --warehouse")
	}
	var (
		out inputs
		err error
	)
	if out.Listings, out.ListingsReport, err = ingest.ReadListingsFile(in.Listings); err != nil {
		return nil, err
	}
	if out.Events, out.EventsReport, err = ingest.ReadEventsFile(in.Events); err != nil {
		return nil, err
	}
	return &out, nil
}

// loadListings reads only the listing catalog. It returns nil without an
// error when no listing source is configured.
func (a *app) loadListings(ctx context.Context) ([]models.Listing, error) {
	in := a.cfg.Input
	switch {
	case in.Warehouse != "":
		src, err := ingest.OpenDuckDB(in.Warehouse)
		if err != nil {
			return nil, err
		}
		defer func() { _ = src.Close() }() //nolint:errcheck // read-only source
		if in.ListingsTable != "" {
			src.Tables.Listings = in.ListingsTable
		}
		listings, _, err := src.Listings(ctx)
		return listings, err
	case in.Listings != "":
		listings, _, err := ingest.ReadListingsFile(in.Listings)
		return listings, err
	default:
		return nil, nil
	}
}

// openStore opens the configured pair store and applies migrations.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	dialect, err := store.ParseDialect(a.cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, dialect, a.cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close() //nolint:errcheck // migration error takes precedence
		return nil, err
	}
	return st, nil
}

// loadModel resolves the configured model version.
func (a *app) loadModel(ctx context.Context) (pricing.Model, error) {
	ms, err := pricing.NewStore(a.cfg.Model.Dir)
	if err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(a.cfg.Model.Version)
	if ref == "" || ref == "latest" {
		ref = a.cfg.Model.Name + "@latest"
	} else if _, err := strconv.Atoi(ref); err == nil {
		ref = a.cfg.Model.Name + "@v" + ref
	}
	return pricing.LoadModel(ctx, ms, ref, a.cfg.Model.AllowBaseline)
}

// batch runs one full pipeline pass and persists its output.
type batch struct {
	Result  *pipeline.Result
	Inputs  *inputs
	Persist bool
}

// runBatch ingests, matches, scores and, when persist is set, replaces the
// pair table and records the run.
func (a *app) runBatch(ctx context.Context, st *store.Store, persist bool) (*batch, error) {
	in, err := a.loadInputs(ctx)
	if err != nil {
		return nil, err
	}
	model, err := a.loadModel(ctx)
	if err != nil {
		return nil, err
	}
	pcfg, err := a.cfg.PipelineConfig()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pcfg, model)
	if err != nil {
		return nil, err
	}

	result, err := p.Run(ctx, in.Listings, in.Events)
	if err != nil {
		return nil, err
	}
	result.Summary.AddIngestion(in.ListingsReport)
	result.Summary.AddIngestion(in.EventsReport)

	if persist && st != nil {
		if err := st.PublishRun(ctx, &result.Summary, result.Pairs); err != nil {
			return nil, err
		}
	}
	return &batch{Result: result, Inputs: in, Persist: persist}, nil
}

// newWriter builds the description writer from configuration. The returned
// close function releases the cache, if any.
func (a *app) newWriter(apiKey string) (describe.Writer, func(), error) {
	dc := a.cfg.Describe
	client, err := describe.NewGeminiClient(apiKey,
		describe.WithModel(dc.Model),
		describe.WithBaseURL(dc.BaseURL),
		describe.WithMaxRetries(dc.MaxRetries),
		describe.WithCooldown(dc.Cooldown),
		describe.WithHTTPClient(&http.Client{Timeout: dc.Timeout}),
	)
	if err != nil {
		return nil, nil, err
	}
	if dc.CachePath == "" {
		return client, func() {}, nil
	}

	db, err := describe.OpenCache(dc.CachePath)
	if err != nil {
		logging.Warn().Err(err).Str("path", dc.CachePath).Msg("Description cache unavailable, continuing without it")
		return client, func() {}, nil
	}
	closeFn := func(db *badger.DB) func() {
		return func() {
			if err := db.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close description cache")
			}
		}
	}(db)
	return describe.NewCachedWriter(client, db, client.Model(), dc.CacheTTL), closeFn, nil
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
