// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package pipeline runs one batch of the listing-event join and prices
// every resulting pair.
//
// A run proceeds in three stages:
//
//  1. Normalize inputs: deduplicate listings and events by ID (last row
//     wins), sort by ID, and apply the MaxListings cap.
//  2. Match: build the geospatial index from events and join listings to
//     nearby events whose dates overlap their availability.
//  3. Score: price each pair with the configured model in parallel. Pairs
//     the model fails to score are dropped and reported in the Summary.
//
// Identical inputs scored by the same model version on the same as-of date
// produce an identical pair table in the same order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/eventbnb/internal/geo"
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/matcher"
	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/temporal"
)

// Config holds the matching parameters of a run.
type Config struct {
	// RadiusKm is the maximum listing-venue distance. Required, > 0.
	RadiusKm float64

	// Window widens event dates before the overlap test.
	Window temporal.Window

	// MissingAvailability decides how listings without availability data
	// are treated. Empty selects temporal.DefaultPolicy.
	MissingAvailability temporal.Policy

	// Index selects the geospatial index ("grid" or "linear").
	Index string

	// CellSizeKm is the grid cell size. Zero selects geo.DefaultCellSizeKm.
	CellSizeKm float64

	// Workers bounds matching and scoring parallelism. Zero selects
	// runtime.NumCPU().
	Workers int

	// MaxListings stops after this many listings in ID order. Zero means
	// no limit.
	MaxListings int

	// AsOf is the reference date for days-until-event. Zero means today (UTC).
	AsOf time.Time

	// UpcomingOnly drops events that ended before AsOf.
	UpcomingOnly bool
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if !(c.RadiusKm > 0) {
		return fmt.Errorf("pipeline: radius must be > 0 km, got %v", c.RadiusKm)
	}
	if c.Window.Before < 0 || c.Window.After < 0 {
		return fmt.Errorf("pipeline: date window must be non-negative, got %+v", c.Window)
	}
	if c.MaxListings < 0 {
		return fmt.Errorf("pipeline: max listings must be non-negative, got %d", c.MaxListings)
	}
	if c.Workers < 0 {
		return fmt.Errorf("pipeline: workers must be non-negative, got %d", c.Workers)
	}
	if _, err := temporal.ParsePolicy(string(c.MissingAvailability)); err != nil {
		return err
	}
	return nil
}

// Result is the output of a run.
type Result struct {
	Pairs   []models.ListingEventPair
	Summary Summary
}

// Pipeline runs batches against a fixed configuration and model. It is
// safe for concurrent use.
type Pipeline struct {
	cfg    Config
	model  pricing.Model
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used to default AsOf and time runs.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pipeline's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New validates cfg and returns a pipeline scoring with model.
//
//nolint:gocritic // cfg is copied once at construction
func New(cfg Config, model pricing.Model, opts ...Option) (*Pipeline, error) {
	if model == nil {
		return nil, errors.New("pipeline: model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MissingAvailability == "" {
		cfg.MissingAvailability = temporal.DefaultPolicy
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	p := &Pipeline{
		cfg:    cfg,
		model:  model,
		now:    time.Now,
		logger: logging.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ModelVersion returns the version of the model this pipeline scores with.
func (p *Pipeline) ModelVersion() string {
	return p.model.Version()
}

// AsOf returns the reference date a run started now would use.
func (p *Pipeline) AsOf() time.Time {
	if !p.cfg.AsOf.IsZero() {
		return models.Day(p.cfg.AsOf)
	}
	return models.Day(p.now().UTC())
}

// Run executes one batch. Structural failures (index construction, a
// *models.MatchError, cancellation) abort the run; unscorable pairs are
// dropped and counted in Result.Summary.
func (p *Pipeline) Run(ctx context.Context, listings []models.Listing, events []models.Event) (*Result, error) {
	start := p.now()
	runID := uuid.New().String()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := p.logger.With().Str("run_id", runID).Logger()

	summary := Summary{
		RunID:        runID,
		ModelVersion: p.model.Version(),
		AsOf:         p.AsOf(),
		StartedAt:    start.UTC(),
		Skipped:      make(map[models.ErrorKind]int),
	}

	result, err := p.run(ctx, &summary, listings, events)
	summary.Duration = p.now().Sub(start)
	metrics.RecordPipelineRun(summary.Duration, len(resultPairs(result)), err)
	if err != nil {
		logger.Error().Err(err).Str("kind", string(models.KindOf(err))).Msg("Pipeline run aborted")
		return nil, err
	}

	result.Summary = summary
	logger.Info().
		Str("model_version", summary.ModelVersion).
		Str("as_of", summary.AsOf.Format(models.DateLayout)).
		Int("listings", summary.Listings).
		Int("events", summary.Events).
		Int("matched", summary.Matched).
		Int("scored", summary.Scored).
		Int("skipped_scoring", summary.Skipped[models.KindScoring]).
		Dur("duration", summary.Duration).
		Msg("Pipeline run complete")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, summary *Summary, listings []models.Listing, events []models.Event) (*Result, error) {
	listings = models.ListingsByID(listings)
	if p.cfg.MaxListings > 0 && len(listings) > p.cfg.MaxListings {
		listings = listings[:p.cfg.MaxListings]
	}
	events = models.EventsByID(events)
	summary.Listings = len(listings)
	summary.Events = len(events)

	points := make([]geo.Point, len(events))
	for i := range events {
		points[i] = geo.Point{ID: events[i].ID, Lat: events[i].Latitude, Lon: events[i].Longitude}
	}
	index, err := geo.New(p.cfg.Index, points, p.cfg.CellSizeKm)
	if err != nil {
		return nil, &models.MatchError{Err: fmt.Errorf("build index: %w", err)}
	}

	filter := temporal.Filter{
		Policy:       p.cfg.MissingAvailability,
		Window:       p.cfg.Window,
		AsOf:         summary.AsOf,
		UpcomingOnly: p.cfg.UpcomingOnly,
	}
	m := matcher.New(index, events, filter, p.cfg.RadiusKm,
		matcher.WithWorkers(p.cfg.Workers),
		matcher.WithLogger(p.logger),
	)
	matches, err := m.Match(ctx, listings)
	if err != nil {
		return nil, err
	}
	summary.Matched = len(matches)

	pairs, skipped, err := p.score(ctx, &filter, matches)
	if err != nil {
		return nil, err
	}
	summary.Scored = len(pairs)
	if len(skipped) > 0 {
		summary.Skipped[models.KindScoring] += len(skipped)
		metrics.RecordSkipped(string(models.KindScoring), len(skipped))
		for i := range skipped {
			summary.SkippedPairs = append(summary.SkippedPairs, models.PairRef{
				ListingID: skipped[i].ListingID,
				EventID:   skipped[i].EventID,
			})
			summary.addDiagnostic(skipped[i].Error())
			if !errors.Is(skipped[i], pricing.ErrUnscored) {
				p.logger.Warn().
					Err(skipped[i]).
					Str("run_id", logging.RunIDFromContext(ctx)).
					Msg("Model failed on pair, skipping")
			}
		}
	}
	return &Result{Pairs: pairs}, nil
}

// score prices matches in parallel, preserving match order. Any per-pair
// model failure, including a panic inside Predict, becomes a ScoringError.
// Only cancellation aborts.
func (p *Pipeline) score(ctx context.Context, filter *temporal.Filter, matches []matcher.Match) ([]models.ListingEventPair, []*models.ScoringError, error) {
	if len(matches) == 0 {
		return nil, nil, nil
	}

	out := make([]models.ListingEventPair, len(matches))
	errs := make([]*models.ScoringError, len(matches))

	workers := p.cfg.Workers
	if workers > len(matches) {
		workers = len(matches)
	}
	chunkSize := (len(matches) + workers - 1) / workers
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(matches) {
			end = len(matches)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(mStart, mEnd int) {
			defer wg.Done()
			for i := mStart; i < mEnd; i++ {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}
				pair, err := p.scoreMatch(filter, &matches[i])
				if err == nil {
					out[i] = pair
					continue
				}
				errs[i] = &models.ScoringError{
					ListingID: matches[i].Listing.ID,
					EventID:   matches[i].Event.ID,
					Err:       err,
				}
			}
		}(start, end)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, nil, err
	}

	pairs := make([]models.ListingEventPair, 0, len(matches))
	var skipped []*models.ScoringError
	for i := range out {
		if errs[i] != nil {
			skipped = append(skipped, errs[i])
			continue
		}
		pairs = append(pairs, out[i])
	}
	return pairs, skipped, nil
}

func (p *Pipeline) scoreMatch(filter *temporal.Filter, m *matcher.Match) (pair models.ListingEventPair, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model %s panicked: %v", p.model.Version(), r)
		}
	}()

	daysUntil := filter.DaysUntil(m.Event)
	features := pricing.Extract(m.Listing, m.Event, m.DistanceKm, daysUntil, filter.AvailableNights(m.Listing, m.Event))

	price, err := p.model.Predict(features)
	if err != nil {
		if !errors.Is(err, pricing.ErrUnscored) {
			err = fmt.Errorf("model %s: %w", p.model.Version(), err)
		}
		return models.ListingEventPair{}, err
	}

	return models.ListingEventPair{
		ListingID:      m.Listing.ID,
		EventID:        m.Event.ID,
		DistanceKm:     m.DistanceKm,
		DateOverlap:    true,
		PredictedPrice: price,
		ModelVersion:   p.model.Version(),
		EventName:      m.Event.Name,
		EventType:      m.Event.Category,
		EventDate:      models.Day(m.Event.Start),
		VenueName:      m.Event.VenueName,
		DaysUntilEvent: daysUntil,
		CurrentPrice:   m.Listing.BasePrice,
		PriceLevel:     pricing.ClassifyPrice(m.Listing.BasePrice, price),
	}, nil
}

func resultPairs(r *Result) []models.ListingEventPair {
	if r == nil {
		return nil
	}
	return r.Pairs
}
