// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pricing"
)

// workspace writes input files and a config pointing at them.
func workspace(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()

	write := func(name string, lines ...string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}

	listings := write("listings.csv",
		"ID,Latitude,LNG,Base_Price,Availability,Description",
		"1,40.7128,-74.0060,150,2024-07-01..2024-07-10,Cozy loft in Manhattan",
		"2,40.7128,-74.0060,90,,No availability given",
		"3,40.7580,-73.9855,200,2024-07-04..2024-07-06,Midtown studio",
	)
	events := write("events.csv",
		"event_id,event_name,event_type,venue_name,lat,lon,start_date,end_date",
		"9,Summer Concert,concert,Brooklyn Park,40.7306,-73.9352,2024-07-05,",
		"10,Harbor Fest,festival,Boston Harbor,42.3601,-71.0589,2024-07-05,",
		"11,Late Show,concert,Chelsea Hall,40.7465,-74.0014,2024-08-20,",
	)
	samples := write("samples.csv",
		"price,observed_price,listing_lat,listing_lon,event_lat,event_lon,start,end,category,as_of,available_nights",
		"150,190,40.7128,-74.0060,40.7306,-73.9352,2024-07-05,,concert,2024-06-01,3",
		"100,110,40.7128,-74.0060,40.7580,-73.9855,2024-07-05,2024-07-07,sports,2024-06-01,2",
		"120,180,40.7128,-74.0060,40.7306,-73.9352,2024-07-05,,concert,2024-07-01,1",
		"200,210,40.7580,-73.9855,40.7465,-74.0014,2024-08-20,,festival,2024-06-01,5",
		"80,85,40.7580,-73.9855,40.7128,-74.0060,2024-09-01,,other,2024-06-01,4",
		"90,140,40.7306,-73.9352,40.7306,-73.9352,2024-07-05,,concert,2024-07-04,1",
	)

	configPath = write("eventbnb.yaml",
		"matching:",
		"  radius_km: 10",
		"  as_of: \"2024-06-01\"",
		"model:",
		"  dir: "+filepath.Join(dir, "models"),
		"input:",
		"  listings: "+listings,
		"  events: "+events,
		"  samples: "+samples,
		"store:",
		"  driver: sqlite3",
		"  dsn: "+filepath.Join(dir, "pairs.db"),
		"describe:",
		"  cache_path: \"\"",
		"logging:",
		"  level: error",
	)
	return dir, configPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut, stdin: os.Stdin}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunThenLookup(t *testing.T) {
	_, cfg := workspace(t)

	out, err := runCLI(t, "run", "--config", cfg, "--json")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var run runOutput
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if run.Summary.Listings != 3 || run.Summary.Events != 3 {
		t.Errorf("summary counts = %d listings, %d events", run.Summary.Listings, run.Summary.Events)
	}
	// Listing 1 and 3 both overlap the concert; listing 2 has no
	// availability and Harbor Fest is out of range.
	if run.Summary.Matched != 2 || run.Summary.Scored != 2 {
		t.Errorf("matched/scored = %d/%d, want 2/2", run.Summary.Matched, run.Summary.Scored)
	}
	if run.Summary.ModelVersion != pricing.BaselineVersion || !run.Persisted {
		t.Errorf("model %q persisted %v", run.Summary.ModelVersion, run.Persisted)
	}

	out, err = runCLI(t, "lookup", "1", "--config", cfg, "--json")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var pairs []models.ListingEventPair
	if err := json.Unmarshal([]byte(out), &pairs); err != nil {
		t.Fatalf("decode lookup output: %v\n%s", err, out)
	}
	if len(pairs) != 1 || pairs[0].EventID != "9" || pairs[0].EventName != "Summer Concert" {
		t.Fatalf("lookup pairs = %+v", pairs)
	}
	if pairs[0].DaysUntilEvent != 34 {
		t.Errorf("DaysUntilEvent = %d, want 34", pairs[0].DaysUntilEvent)
	}

	out, err = runCLI(t, "lookup", "2", "--config", cfg)
	if err != nil {
		t.Fatalf("lookup 2: %v", err)
	}
	if !strings.Contains(out, "No matched events for listing 2") {
		t.Errorf("lookup 2 output = %q", out)
	}
}

func TestRun_DryRunWritesCSV(t *testing.T) {
	dir, cfg := workspace(t)
	csvPath := filepath.Join(dir, "pairs.csv")

	out, err := runCLI(t, "run", "--config", cfg, "--dry-run", "--csv", csvPath, "--radius", "500")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "dry run") || !strings.Contains(out, "Pairs written to") {
		t.Errorf("output = %q", out)
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	// Header plus four pairs: the 500 km radius reaches Boston.
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1; lines != 5 {
		t.Errorf("csv has %d lines, want 5:\n%s", lines, data)
	}
	if _, err := os.Stat(filepath.Join(dir, "pairs.db")); !os.IsNotExist(err) {
		t.Errorf("dry run created the pair store (stat err %v)", err)
	}
}

func TestRun_InvalidOverride(t *testing.T) {
	_, cfg := workspace(t)

	if _, err := runCLI(t, "run", "--config", cfg, "--radius=-1"); err == nil {
		t.Error("expected validation error for negative radius")
	}
	if _, err := runCLI(t, "run", "--config", cfg, "--missing-availability", "sometimes"); err == nil {
		t.Error("expected validation error for unknown policy")
	}
	if _, err := runCLI(t, "lookup", "not-an-id", "--config", cfg); err == nil {
		t.Error("expected error for malformed listing id")
	}
}

func TestTrainAndModels(t *testing.T) {
	_, cfg := workspace(t)

	out, err := runCLI(t, "models", "--config", cfg)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "No models") {
		t.Errorf("models output = %q", out)
	}

	out, err = runCLI(t, "train", "--config", cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if !strings.Contains(out, "Saved ridge@v1") {
		t.Errorf("train output = %q", out)
	}

	out, err = runCLI(t, "models", "--config", cfg, "--json")
	if err != nil {
		t.Fatalf("models --json: %v", err)
	}
	var list []pricing.ModelMetadata
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode models: %v\n%s", err, out)
	}
	if len(list) != 1 || list[0].VersionString() != "ridge@v1" || list[0].SampleCount != 6 {
		t.Errorf("models = %+v", list)
	}
}

func TestDescribe_RequiresEvent(t *testing.T) {
	_, cfg := workspace(t)

	_, err := runCLI(t, "describe", "1", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "--event") {
		t.Errorf("describe without --event: %v", err)
	}
}
