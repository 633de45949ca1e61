// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/eventbnb/internal/geo"
	"github.com/tomtom215/eventbnb/internal/ingest"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/temporal"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func span(start, end string) models.DateRange {
	return models.DateRange{Start: day(start), End: day(end)}
}

func nycListing() models.Listing {
	return models.Listing{
		ID:           "1",
		Latitude:     40.7128,
		Longitude:    -74.0060,
		BasePrice:    150,
		Availability: []models.DateRange{span("2024-07-01", "2024-07-10")},
	}
}

func nycEvent() models.Event {
	return models.Event{
		ID:        "9",
		Name:      "Summer Concert",
		Category:  "concert",
		VenueName: "Brooklyn Park",
		Latitude:  40.7306,
		Longitude: -73.9352,
		Start:     day("2024-07-05"),
		End:       day("2024-07-05"),
	}
}

func testConfig(radius float64) Config {
	return Config{
		RadiusKm: radius,
		Workers:  4,
		AsOf:     day("2024-06-01"),
	}
}

func newPipeline(t *testing.T, cfg Config, model pricing.Model) *Pipeline {
	t.Helper()
	p, err := New(cfg, model)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func TestRun_Scenario(t *testing.T) {
	t.Parallel()

	noOverlap := nycListing()
	noOverlap.Availability = []models.DateRange{span("2024-07-06", "2024-07-10")}

	tests := []struct {
		name      string
		radius    float64
		listing   models.Listing
		wantPairs int
	}{
		{"within radius and dates", 10, nycListing(), 1},
		{"outside radius", 5, nycListing(), 0},
		{"no date overlap", 10, noOverlap, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newPipeline(t, testConfig(tt.radius), pricing.NewBaselineModel())
			res, err := p.Run(context.Background(), []models.Listing{tt.listing}, []models.Event{nycEvent()})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if len(res.Pairs) != tt.wantPairs {
				t.Fatalf("Run() emitted %d pairs, want %d", len(res.Pairs), tt.wantPairs)
			}
			if tt.wantPairs == 0 {
				return
			}

			pair := res.Pairs[0]
			want := geo.Haversine(40.7128, -74.0060, 40.7306, -73.9352)
			if pair.ListingID != "1" || pair.EventID != "9" {
				t.Errorf("pair = %s/%s, want 1/9", pair.ListingID, pair.EventID)
			}
			if pair.DistanceKm != want {
				t.Errorf("DistanceKm = %v, want %v", pair.DistanceKm, want)
			}
			if !pair.DateOverlap {
				t.Error("DateOverlap = false, want true")
			}
			if pair.ModelVersion != pricing.BaselineVersion {
				t.Errorf("ModelVersion = %q", pair.ModelVersion)
			}
			if pair.PredictedPrice < 0 {
				t.Errorf("PredictedPrice = %v, want >= 0", pair.PredictedPrice)
			}
			if pair.DaysUntilEvent != 34 {
				t.Errorf("DaysUntilEvent = %d, want 34", pair.DaysUntilEvent)
			}
			if pair.EventName != "Summer Concert" || pair.VenueName != "Brooklyn Park" || pair.CurrentPrice != 150 {
				t.Errorf("display columns not populated: %+v", pair)
			}
		})
	}
}

func TestRun_Summary(t *testing.T) {
	t.Parallel()

	p := newPipeline(t, testConfig(10), pricing.NewBaselineModel())
	listings := []models.Listing{nycListing(), nycListing()}
	res, err := p.Run(context.Background(), listings, []models.Event{nycEvent()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	s := res.Summary
	if s.RunID == "" {
		t.Error("RunID is empty")
	}
	if s.ModelVersion != pricing.BaselineVersion {
		t.Errorf("ModelVersion = %q", s.ModelVersion)
	}
	if !s.AsOf.Equal(day("2024-06-01")) {
		t.Errorf("AsOf = %v", s.AsOf)
	}
	if s.Listings != 1 || s.Events != 1 || s.Matched != 1 || s.Scored != 1 {
		t.Errorf("counts = %+v, want 1 deduplicated listing, 1 event, 1 match, 1 scored", s)
	}
	if s.TotalSkipped() != 0 {
		t.Errorf("TotalSkipped() = %d, want 0", s.TotalSkipped())
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	var listings []models.Listing
	for i := 0; i < 40; i++ {
		l := nycListing()
		l.ID = fmt.Sprintf("L%02d", i)
		l.Latitude += float64(i%7) * 0.01
		l.Longitude += float64(i%5) * 0.01
		l.BasePrice = 80 + float64(i)
		listings = append(listings, l)
	}
	var events []models.Event
	for i := 0; i < 10; i++ {
		e := nycEvent()
		e.ID = fmt.Sprintf("E%d", i)
		e.Latitude += float64(i) * 0.005
		e.Start = day("2024-07-01").AddDate(0, 0, i)
		e.End = e.Start
		events = append(events, e)
	}

	p := newPipeline(t, testConfig(10), pricing.NewBaselineModel())
	first, err := p.Run(context.Background(), listings, events)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Pairs) == 0 {
		t.Fatal("expected pairs")
	}

	// Reversed input order and a different worker count must not matter.
	reversed := make([]models.Listing, len(listings))
	for i := range listings {
		reversed[len(listings)-1-i] = listings[i]
	}
	cfg := testConfig(10)
	cfg.Workers = 1
	second, err := newPipeline(t, cfg, pricing.NewBaselineModel()).Run(context.Background(), reversed, events)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Pairs, second.Pairs) {
		t.Error("re-running identical inputs produced a different pair table")
	}
}

func TestRun_MaxListings(t *testing.T) {
	t.Parallel()

	var listings []models.Listing
	for _, id := range []string{"c", "a", "d", "b"} {
		l := nycListing()
		l.ID = id
		listings = append(listings, l)
	}

	cfg := testConfig(10)
	cfg.MaxListings = 2
	res, err := newPipeline(t, cfg, pricing.NewBaselineModel()).Run(context.Background(), listings, []models.Event{nycEvent()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Listings != 2 {
		t.Errorf("Summary.Listings = %d, want 2", res.Summary.Listings)
	}
	var got []string
	for _, p := range res.Pairs {
		got = append(got, p.ListingID)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("listings processed = %v, want [a b]", got)
	}
}

func TestRun_MissingAvailabilityPolicy(t *testing.T) {
	t.Parallel()

	l := nycListing()
	l.Availability = nil

	for _, tt := range []struct {
		policy temporal.Policy
		want   int
	}{
		{"", 0},
		{temporal.PolicyExclude, 0},
		{temporal.PolicyAlways, 1},
	} {
		cfg := testConfig(10)
		cfg.MissingAvailability = tt.policy
		res, err := newPipeline(t, cfg, pricing.NewBaselineModel()).Run(context.Background(), []models.Listing{l}, []models.Event{nycEvent()})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Pairs) != tt.want {
			t.Errorf("policy %q: %d pairs, want %d", tt.policy, len(res.Pairs), tt.want)
		}
	}
}

func TestRun_UnscoredPairsReported(t *testing.T) {
	t.Parallel()

	free := nycListing()
	free.ID = "2"
	free.BasePrice = 0

	p := newPipeline(t, testConfig(10), pricing.NewBaselineModel())
	res, err := p.Run(context.Background(), []models.Listing{nycListing(), free}, []models.Event{nycEvent()})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].ListingID != "1" {
		t.Fatalf("pairs = %+v, want only listing 1", res.Pairs)
	}
	s := res.Summary
	if s.Matched != 2 || s.Scored != 1 {
		t.Errorf("Matched/Scored = %d/%d, want 2/1", s.Matched, s.Scored)
	}
	if s.Skipped[models.KindScoring] != 1 {
		t.Errorf("Skipped[scoring] = %d, want 1", s.Skipped[models.KindScoring])
	}
	want := []models.PairRef{{ListingID: "2", EventID: "9"}}
	if !reflect.DeepEqual(s.SkippedPairs, want) {
		t.Errorf("SkippedPairs = %v, want %v", s.SkippedPairs, want)
	}
	if len(s.Diagnostics) != 1 {
		t.Errorf("Diagnostics = %v, want one entry", s.Diagnostics)
	}
}

// flakyModel fails on listings priced at failPrice and prices the rest at
// their base price.
type flakyModel struct {
	failPrice float64
	panics    bool
}

func (flakyModel) Version() string { return "flaky@v1" }
func (m flakyModel) Predict(f pricing.Features) (float64, error) {
	if f.BasePrice != m.failPrice {
		return f.BasePrice, nil
	}
	if m.panics {
		panic("index out of range")
	}
	return 0, errors.New("feature lookup failed")
}

func TestRun_ModelFailureSkipsPair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		model  flakyModel
		reason string
	}{
		{"error", flakyModel{failPrice: 999}, "feature lookup failed"},
		{"panic", flakyModel{failPrice: 999, panics: true}, "panicked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bad := nycListing()
			bad.ID = "2"
			bad.BasePrice = 999

			p := newPipeline(t, testConfig(10), tt.model)
			res, err := p.Run(context.Background(), []models.Listing{nycListing(), bad}, []models.Event{nycEvent()})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if len(res.Pairs) != 1 || res.Pairs[0].ListingID != "1" {
				t.Fatalf("pairs = %+v, want only listing 1", res.Pairs)
			}
			if res.Pairs[0].PredictedPrice != 150 {
				t.Errorf("PredictedPrice = %v, want 150", res.Pairs[0].PredictedPrice)
			}
			s := res.Summary
			if s.Matched != 2 || s.Scored != 1 {
				t.Errorf("Matched/Scored = %d/%d, want 2/1", s.Matched, s.Scored)
			}
			if s.Skipped[models.KindScoring] != 1 {
				t.Errorf("Skipped[scoring] = %d, want 1", s.Skipped[models.KindScoring])
			}
			want := []models.PairRef{{ListingID: "2", EventID: "9"}}
			if !reflect.DeepEqual(s.SkippedPairs, want) {
				t.Errorf("SkippedPairs = %v, want %v", s.SkippedPairs, want)
			}
			if len(s.Diagnostics) != 1 || !strings.Contains(s.Diagnostics[0], tt.reason) {
				t.Errorf("Diagnostics = %v, want one entry mentioning %q", s.Diagnostics, tt.reason)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(t, testConfig(10), pricing.NewBaselineModel())
	if _, err := p.Run(ctx, []models.Listing{nycListing()}, []models.Event{nycEvent()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_LinearIndexAgrees(t *testing.T) {
	t.Parallel()

	grid := testConfig(10)
	linear := testConfig(10)
	linear.Index = geo.KindLinear

	listings := []models.Listing{nycListing()}
	events := []models.Event{nycEvent()}
	a, err := newPipeline(t, grid, pricing.NewBaselineModel()).Run(context.Background(), listings, events)
	if err != nil {
		t.Fatal(err)
	}
	b, err := newPipeline(t, linear, pricing.NewBaselineModel()).Run(context.Background(), listings, events)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Pairs, b.Pairs) {
		t.Errorf("grid pairs %+v differ from linear pairs %+v", a.Pairs, b.Pairs)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero radius", func(c *Config) { c.RadiusKm = 0 }},
		{"negative radius", func(c *Config) { c.RadiusKm = -1 }},
		{"negative window", func(c *Config) { c.Window.Before = -1 }},
		{"negative max listings", func(c *Config) { c.MaxListings = -3 }},
		{"unknown policy", func(c *Config) { c.MissingAvailability = "sometimes" }},
	}
	for _, tt := range tests {
		cfg := testConfig(10)
		tt.mutate(&cfg)
		if _, err := New(cfg, pricing.NewBaselineModel()); err == nil {
			t.Errorf("%s: New() succeeded, want error", tt.name)
		}
	}
	if _, err := New(testConfig(10), nil); err == nil {
		t.Error("New(nil model) succeeded, want error")
	}
}

func TestRun_UnknownIndexKind(t *testing.T) {
	t.Parallel()

	cfg := testConfig(10)
	cfg.Index = "kdtree"
	_, err := newPipeline(t, cfg, pricing.NewBaselineModel()).Run(context.Background(), []models.Listing{nycListing()}, []models.Event{nycEvent()})
	if models.KindOf(err) != models.KindMatch {
		t.Errorf("Run() error = %v, want a match error", err)
	}
}

func TestSummary_AddIngestion(t *testing.T) {
	t.Parallel()

	var s Summary
	s.AddIngestion(&ingest.Report{
		Source:   "listings",
		Accepted: 3,
		Rejected: 2,
		Errors: []models.IngestionError{
			{Source: "listings", Row: 2, Field: "lat", Err: errors.New("out of range")},
			{Source: "listings", Row: 5, Field: "price", Err: errors.New("must be greater than 0")},
		},
	})
	s.AddIngestion(nil)

	if s.Skipped[models.KindIngestion] != 2 {
		t.Errorf("Skipped[ingestion] = %d, want 2", s.Skipped[models.KindIngestion])
	}
	if len(s.Diagnostics) != 2 {
		t.Errorf("Diagnostics = %v, want 2 entries", s.Diagnostics)
	}
}
