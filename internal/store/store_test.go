// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pipeline"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testPair(listingID, eventID string, distance float64, date, version string) models.ListingEventPair {
	return models.ListingEventPair{
		ListingID:      listingID,
		EventID:        eventID,
		DistanceKm:     distance,
		DateOverlap:    true,
		PredictedPrice: 180.5,
		ModelVersion:   version,
		EventName:      "Event " + eventID,
		EventType:      "concert",
		EventDate:      day(date),
		VenueName:      "Venue " + eventID,
		DaysUntilEvent: 12,
		CurrentPrice:   150,
		PriceLevel:     models.PriceBelowMarket,
	}
}

// dialects opens a fresh, migrated in-memory store per embedded driver.
func dialects(t *testing.T) map[Dialect]*Store {
	t.Helper()
	ctx := context.Background()

	out := make(map[Dialect]*Store)
	for _, d := range []struct {
		dialect Dialect
		dsn     string
	}{
		{DialectSQLite, ":memory:"},
		{DialectDuckDB, ""},
	} {
		s, err := Open(ctx, d.dialect, d.dsn)
		if err != nil {
			t.Fatalf("Open(%s) error: %v", d.dialect, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("%s Migrate() error: %v", d.dialect, err)
		}
		// Migrations are idempotent.
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("%s second Migrate() error: %v", d.dialect, err)
		}
		out[d.dialect] = s
	}
	return out
}

func TestStore_TopMatches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for dialect, s := range dialects(t) {
		pairs := []models.ListingEventPair{
			testPair("1", "b", 2.5, "2024-07-06", "ridge@v1"),
			testPair("1", "a", 2.5, "2024-07-05", "ridge@v1"),
			testPair("1", "c", 0.4, "2024-07-20", "ridge@v1"),
			testPair("2", "a", 1.0, "2024-07-05", "ridge@v1"),
		}
		if err := s.ReplacePairs(ctx, "ridge@v1", pairs); err != nil {
			t.Fatalf("%s ReplacePairs() error: %v", dialect, err)
		}

		got, err := s.TopMatches(ctx, "1", 0)
		if err != nil {
			t.Fatalf("%s TopMatches() error: %v", dialect, err)
		}
		var ids []string
		for _, p := range got {
			ids = append(ids, p.EventID)
		}
		if strings.Join(ids, ",") != "c,a,b" {
			t.Errorf("%s TopMatches order = %v, want [c a b]", dialect, ids)
		}

		first := got[0]
		want := testPair("1", "c", 0.4, "2024-07-20", "ridge@v1")
		if first != want {
			t.Errorf("%s round-trip pair = %+v, want %+v", dialect, first, want)
		}

		limited, err := s.TopMatches(ctx, "1", 2)
		if err != nil || len(limited) != 2 {
			t.Errorf("%s TopMatches(limit 2) = %d rows, %v", dialect, len(limited), err)
		}

		none, err := s.TopMatches(ctx, "999", 5)
		if err != nil || len(none) != 0 {
			t.Errorf("%s TopMatches(unknown) = %v, %v", dialect, none, err)
		}
	}
}

func TestStore_ReplacePairs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for dialect, s := range dialects(t) {
		if err := s.ReplacePairs(ctx, "ridge@v1", []models.ListingEventPair{
			testPair("1", "a", 1, "2024-07-05", "ridge@v1"),
			testPair("1", "b", 2, "2024-07-05", "ridge@v1"),
		}); err != nil {
			t.Fatal(err)
		}
		if err := s.ReplacePairs(ctx, "ridge@v2", []models.ListingEventPair{
			testPair("1", "a", 1, "2024-07-05", "ridge@v2"),
		}); err != nil {
			t.Fatal(err)
		}

		// Full recompute of v1 replaces only v1 rows.
		if err := s.ReplacePairs(ctx, "ridge@v1", []models.ListingEventPair{
			testPair("1", "b", 2, "2024-07-05", "ridge@v1"),
		}); err != nil {
			t.Fatalf("%s second ReplacePairs() error: %v", dialect, err)
		}
		for version, want := range map[string]int{"ridge@v1": 1, "ridge@v2": 1} {
			n, err := s.CountPairs(ctx, version)
			if err != nil || n != want {
				t.Errorf("%s CountPairs(%s) = %d, %v; want %d", dialect, version, n, err, want)
			}
		}

		// A mismatched version rolls back the whole replacement.
		err := s.ReplacePairs(ctx, "ridge@v1", []models.ListingEventPair{
			testPair("1", "z", 1, "2024-07-05", "ridge@v1"),
			testPair("1", "y", 1, "2024-07-05", "ridge@v9"),
		})
		if err == nil {
			t.Errorf("%s ReplacePairs(mismatched version) succeeded, want error", dialect)
		}
		if n, _ := s.CountPairs(ctx, "ridge@v1"); n != 1 {
			t.Errorf("%s after rollback CountPairs = %d, want 1", dialect, n)
		}
	}
}

func TestStore_PublishRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	summary := func(id, version string, minute int) *pipeline.Summary {
		return &pipeline.Summary{
			RunID:        id,
			ModelVersion: version,
			AsOf:         day("2024-06-01"),
			StartedAt:    time.Date(2024, 6, 1, 10, minute, 0, 0, time.UTC),
			Skipped:      map[models.ErrorKind]int{},
			Duration:     time.Second,
		}
	}

	for dialect, s := range dialects(t) {
		if err := s.PublishRun(ctx, summary("run-0", "ridge@v1", 0), []models.ListingEventPair{
			testPair("1", "e0", 1, "2024-07-05", "ridge@v1"),
		}); err != nil {
			t.Fatalf("%s PublishRun() error: %v", dialect, err)
		}

		// A failing publish leaves neither its pairs nor its run behind.
		err := s.PublishRun(ctx, summary("run-1", "ridge@v2", 1), []models.ListingEventPair{
			testPair("1", "e1", 1, "2024-07-05", "ridge@v2"),
			testPair("1", "e2", 2, "2024-07-05", "ridge@v1"),
		})
		if err == nil {
			t.Fatalf("%s PublishRun() with a mismatched pair succeeded, want error", dialect)
		}
		run, err := s.LatestRun(ctx)
		if err != nil || run.RunID != "run-0" {
			t.Errorf("%s LatestRun() after failed publish = %+v, %v; want run-0", dialect, run, err)
		}
		if n, err := s.CountPairs(ctx, "ridge@v2"); err != nil || n != 0 {
			t.Errorf("%s CountPairs(ridge@v2) = %d, %v; want 0", dialect, n, err)
		}
		got, err := s.TopMatches(ctx, "1", 5)
		if err != nil || len(got) != 1 || got[0].EventID != "e0" {
			t.Errorf("%s TopMatches() after failed publish = %+v, %v; want the ridge@v1 pair", dialect, got, err)
		}

		if err := s.PublishRun(ctx, summary("run-2", "ridge@v2", 2), []models.ListingEventPair{
			testPair("1", "e1", 1, "2024-07-05", "ridge@v2"),
		}); err != nil {
			t.Fatalf("%s PublishRun() error: %v", dialect, err)
		}
		got, err = s.TopMatches(ctx, "1", 5)
		if err != nil || len(got) != 1 || got[0].ModelVersion != "ridge@v2" {
			t.Errorf("%s TopMatches() = %+v, %v; want the ridge@v2 pair", dialect, got, err)
		}
	}
}

func TestStore_Runs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for dialect, s := range dialects(t) {
		if _, err := s.LatestRun(ctx); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s LatestRun(empty) error = %v, want ErrNotFound", dialect, err)
		}

		for i, version := range []string{"ridge@v1", "ridge@v2"} {
			if err := s.ReplacePairs(ctx, version, []models.ListingEventPair{
				testPair("1", fmt.Sprintf("e%d", i), 1, "2024-07-05", version),
			}); err != nil {
				t.Fatal(err)
			}
			summary := &pipeline.Summary{
				RunID:        fmt.Sprintf("run-%d", i),
				ModelVersion: version,
				AsOf:         day("2024-06-01"),
				StartedAt:    time.Date(2024, 6, 1, 10, i, 0, 0, time.UTC),
				Listings:     3,
				Events:       2,
				Matched:      2,
				Scored:       1,
				Skipped:      map[models.ErrorKind]int{models.KindScoring: 1, models.KindIngestion: 2},
				SkippedPairs: []models.PairRef{{ListingID: "2", EventID: "e0"}},
				Duration:     1500 * time.Millisecond,
			}
			if err := s.RecordRun(ctx, summary); err != nil {
				t.Fatalf("%s RecordRun() error: %v", dialect, err)
			}
		}

		run, err := s.LatestRun(ctx)
		if err != nil {
			t.Fatalf("%s LatestRun() error: %v", dialect, err)
		}
		if run.RunID != "run-1" || run.ModelVersion != "ridge@v2" {
			t.Errorf("%s LatestRun() = %+v, want run-1 ridge@v2", dialect, run)
		}
		if run.SkippedTotal != 3 || run.Skipped[models.KindIngestion] != 2 || run.DurationMS != 1500 {
			t.Errorf("%s run counts = %+v", dialect, run)
		}
		if !run.AsOf.Equal(day("2024-06-01")) || !run.FinishedAt.Equal(time.Date(2024, 6, 1, 10, 1, 1, 500000000, time.UTC)) {
			t.Errorf("%s run times = %v / %v", dialect, run.AsOf, run.FinishedAt)
		}

		// Lookups follow the latest run's model version.
		got, err := s.TopMatches(ctx, "1", 5)
		if err != nil || len(got) != 1 || got[0].ModelVersion != "ridge@v2" {
			t.Errorf("%s TopMatches() = %+v, %v; want the ridge@v2 pair", dialect, got, err)
		}

		if _, err := s.Pair(ctx, "1", "e1"); err != nil {
			t.Errorf("%s Pair(1, e1) error: %v", dialect, err)
		}
		if _, err := s.Pair(ctx, "1", "e0"); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s Pair(1, e0) error = %v, want ErrNotFound (older model version)", dialect, err)
		}

		runs, err := s.ListRuns(ctx, 10)
		if err != nil || len(runs) != 2 {
			t.Errorf("%s ListRuns() = %d runs, %v", dialect, len(runs), err)
		}
	}
}

func TestOpen_SQLiteFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "pairs.db")
	s, err := Open(ctx, DialectSQLite, path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer func() { _ = s.Close() }()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"", DialectDuckDB, false},
		{"DuckDB", DialectDuckDB, false},
		{"postgresql", DialectPostgres, false},
		{"sqlite", DialectSQLite, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDialect(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	t.Parallel()

	pg := New(nil, DialectPostgres)
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	lite := New(nil, DialectSQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{-1: 5, 0: 5, 1: 1, 50: 50, 51: 50, 500: 50} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pair := testPair("1", "9", 6.2861, "2024-07-05", "baseline@v1")
	pair.VenueName = "Park, Brooklyn"
	if err := WriteCSV(&buf, []models.ListingEventPair{pair}); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	want := "listing_id,event_id,distance_km,date_overlap,predicted_price,model_version,event_name,event_type,event_date,venue_name,days_until_event,current_price,price_level\n" +
		"1,9,6.286,true,180.50,baseline@v1,Event 9,concert,2024-07-05,\"Park, Brooklyn\",12,150.00,below_market\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}
