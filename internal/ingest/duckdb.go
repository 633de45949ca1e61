// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/tomtom215/eventbnb/internal/models"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DuckDBSource reads listings and events from DuckDB tables. Values pass
// through the same parsing and validation as CSV rows.
//
// Expected schema (types may vary; values are cast to text):
//
//	listings(listing_id, name, lat, lon, price, availability, description)
//	events(event_id, event_name, event_type, venue_name, lat, lon, start_date, end_date)
//
// Rows are read in insertion order (rowid), so when an ID repeats the last
// inserted row wins, as with CSV input. Both names must refer to base
// tables; views have no rowid.
type DuckDBSource struct {
	db     *sql.DB
	owned  bool
	Tables struct {
		Listings string
		Events   string
	}
}

// OpenDuckDB opens the database at path read-only.
func OpenDuckDB(path string) (*DuckDBSource, error) {
	connStr := fmt.Sprintf("%s?access_mode=read_only&autoinstall_known_extensions=false&autoload_known_extensions=false", path)
	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("ingest: open duckdb %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, fmt.Errorf("ingest: open duckdb %s: %w", path, err)
	}
	s := NewDuckDBSource(db)
	s.owned = true
	return s, nil
}

// NewDuckDBSource wraps an existing DuckDB connection. Close leaves db open.
func NewDuckDBSource(db *sql.DB) *DuckDBSource {
	s := &DuckDBSource{db: db}
	s.Tables.Listings = "listings"
	s.Tables.Events = "events"
	return s
}

// Close releases the connection if the source opened it.
func (s *DuckDBSource) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Listings reads every row of the listings table.
func (s *DuckDBSource) Listings(ctx context.Context) ([]models.Listing, *Report, error) {
	if !tableNamePattern.MatchString(s.Tables.Listings) {
		return nil, nil, fmt.Errorf("ingest: invalid table name %q", s.Tables.Listings)
	}
	query := fmt.Sprintf(`
		SELECT
			CAST(listing_id AS VARCHAR),
			CAST(name AS VARCHAR),
			CAST(lat AS VARCHAR),
			CAST(lon AS VARCHAR),
			CAST(price AS VARCHAR),
			CAST(availability AS VARCHAR),
			CAST(description AS VARCHAR)
		FROM %s
		ORDER BY rowid`, s.Tables.Listings)
	cols := []string{"listing_id", "name", "lat", "lon", "price", "availability", "description"}

	report := newReport(SourceListings)
	var out []models.Listing
	err := s.scan(ctx, query, cols, func(rec record, row int) {
		l, ierr := parseListing(rec, row)
		if ierr != nil {
			report.reject(ierr)
			return
		}
		report.accept()
		out = append(out, l)
	})
	if err != nil {
		return nil, nil, err
	}
	report.finish()
	return out, report, nil
}

// Events reads every row of the events table.
func (s *DuckDBSource) Events(ctx context.Context) ([]models.Event, *Report, error) {
	if !tableNamePattern.MatchString(s.Tables.Events) {
		return nil, nil, fmt.Errorf("ingest: invalid table name %q", s.Tables.Events)
	}
	query := fmt.Sprintf(`
		SELECT
			CAST(event_id AS VARCHAR),
			CAST(event_name AS VARCHAR),
			CAST(event_type AS VARCHAR),
			CAST(venue_name AS VARCHAR),
			CAST(lat AS VARCHAR),
			CAST(lon AS VARCHAR),
			CAST(CAST(start_date AS DATE) AS VARCHAR),
			CAST(CAST(end_date AS DATE) AS VARCHAR)
		FROM %s
		ORDER BY rowid`, s.Tables.Events)
	cols := []string{"event_id", "name", "category", "venue", "lat", "lon", "start", "end"}

	report := newReport(SourceEvents)
	var out []models.Event
	err := s.scan(ctx, query, cols, func(rec record, row int) {
		e, ierr := parseEvent(rec, row)
		if ierr != nil {
			report.reject(ierr)
			return
		}
		report.accept()
		out = append(out, e)
	})
	if err != nil {
		return nil, nil, err
	}
	report.finish()
	return out, report, nil
}

// scan runs query and hands each row to fn as a record over cols.
func (s *DuckDBSource) scan(ctx context.Context, query string, cols []string, fn func(rec record, row int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("ingest: query: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // rows.Err is checked below

	positions := make(map[string]int, len(cols))
	for i, c := range cols {
		positions[c] = i
	}

	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	for row := 1; rows.Next(); row++ {
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("ingest: scan row %d: %w", row, err)
		}
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = v.String
		}
		fn(record{cells: cells, cols: positions}, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ingest: iterate rows: %w", err)
	}
	return nil
}
