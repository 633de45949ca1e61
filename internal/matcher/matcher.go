// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package matcher joins listings to nearby events whose dates intersect the
// listing's availability.
//
// For every listing the geospatial index is queried first; the temporal
// filter only runs on the events it returns, so the join never degrades to
// a full listing x event cross product. Listings are processed in parallel
// chunks and the merged result is sorted into a deterministic order:
//
//	listing ID, distance ascending, event start ascending, event ID
package matcher

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/eventbnb/internal/geo"
	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/metrics"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/temporal"
)

// Match is a listing paired with an event inside the search radius whose
// dates overlap the listing availability. Listing and Event point into the
// matcher's read-only inputs.
type Match struct {
	Listing    *models.Listing
	Event      *models.Event
	DistanceKm float64
}

// Matcher performs the listing-event join. It is safe for concurrent use;
// all state is read-only after New.
type Matcher struct {
	index    geo.Index
	filter   temporal.Filter
	events   map[string]*models.Event
	radiusKm float64
	workers  int
	logger   zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithWorkers sets the number of parallel workers. n <= 0 selects
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithLogger sets the matcher's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// New creates a matcher over events. index must have been built from the
// same events, keyed by event ID.
func New(index geo.Index, events []models.Event, filter temporal.Filter, radiusKm float64, opts ...Option) *Matcher {
	m := &Matcher{
		index:    index,
		filter:   filter,
		events:   make(map[string]*models.Event, len(events)),
		radiusKm: radiusKm,
		workers:  runtime.NumCPU(),
		logger:   logging.WithComponent("matcher"),
	}
	for i := range events {
		m.events[events[i].ID] = &events[i]
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns all matches for listings in deterministic order. A listing
// with no matches contributes nothing. Any *models.MatchError aborts the
// join, as does cancellation of ctx.
func (m *Matcher) Match(ctx context.Context, listings []models.Listing) ([]Match, error) {
	if m.index == nil {
		return nil, &models.MatchError{Err: fmt.Errorf("no geospatial index")}
	}
	if len(listings) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := m.workers
	if workers > len(listings) {
		workers = len(listings)
	}

	perListing := make([][]Match, len(listings))
	errCh := make(chan error, workers)
	chunkSize := (len(listings) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(listings) {
			end = len(listings)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(lStart, lEnd int) {
			defer wg.Done()
			for i := lStart; i < lEnd; i++ {
				if err := ctx.Err(); err != nil {
					errCh <- err
					return
				}
				found, err := m.matchListing(&listings[i])
				if err != nil {
					errCh <- err
					cancel()
					return
				}
				perListing[i] = found
			}
		}(start, end)
	}

	wg.Wait()
	close(errCh)
	if err := firstError(errCh); err != nil {
		return nil, err
	}

	var out []Match
	for _, found := range perListing {
		out = append(out, found...)
	}
	SortMatches(out)

	m.logger.Debug().
		Int("listings", len(listings)).
		Int("events", len(m.events)).
		Int("matches", len(out)).
		Msg("Listing-event join complete")

	return out, nil
}

// firstError prefers a MatchError over the context errors it caused in
// other workers.
func firstError(errCh <-chan error) error {
	var first error
	for err := range errCh {
		var matchErr *models.MatchError
		if errors.As(err, &matchErr) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

// matchListing runs the index query then the temporal filter for one listing.
func (m *Matcher) matchListing(l *models.Listing) ([]Match, error) {
	start := time.Now()
	hits := m.index.Query(l.Latitude, l.Longitude, m.radiusKm)
	metrics.IndexQueryDuration.WithLabelValues(indexKind(m.index)).Observe(time.Since(start).Seconds())

	var found []Match
	for _, hit := range hits {
		e, ok := m.events[hit.ID]
		if !ok {
			return nil, &models.MatchError{
				ListingID: l.ID,
				Err:       fmt.Errorf("index returned unknown event %q", hit.ID),
			}
		}
		if hit.DistanceKm > m.radiusKm {
			return nil, &models.MatchError{
				ListingID: l.ID,
				Err:       fmt.Errorf("index returned event %s at %.3f km outside radius %.3f km", hit.ID, hit.DistanceKm, m.radiusKm),
			}
		}
		if !m.filter.Overlaps(l, e) {
			continue
		}
		found = append(found, Match{Listing: l, Event: e, DistanceKm: hit.DistanceKm})
	}
	return found, nil
}

// SortMatches orders matches by listing ID, then distance, then event start,
// then event ID.
func SortMatches(ms []Match) {
	sort.Slice(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Listing.ID != b.Listing.ID {
			return a.Listing.ID < b.Listing.ID
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if !a.Event.Start.Equal(b.Event.Start) {
			return a.Event.Start.Before(b.Event.Start)
		}
		return a.Event.ID < b.Event.ID
	})
}

func indexKind(idx geo.Index) string {
	switch idx.(type) {
	case *geo.GridIndex:
		return geo.KindGrid
	case *geo.LinearIndex:
		return geo.KindLinear
	default:
		return "custom"
	}
}
