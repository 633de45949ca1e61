// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/validation"
)

// column is a logical field and the header names that may supply it, in
// priority order.
type column struct {
	name     string
	aliases  []string
	required bool
}

var listingColumns = []column{
	{name: "listing_id", aliases: []string{"listing_id", "id"}, required: true},
	{name: "name", aliases: []string{"name", "listing_name"}},
	{name: "lat", aliases: []string{"lat", "latitude"}, required: true},
	{name: "lon", aliases: []string{"lon", "lng", "longitude"}, required: true},
	{name: "price", aliases: []string{"price", "base_price", "current_price"}, required: true},
	{name: "availability", aliases: []string{"availability"}},
	{name: "description", aliases: []string{"description"}},
}

var eventColumns = []column{
	{name: "event_id", aliases: []string{"event_id", "id"}, required: true},
	{name: "name", aliases: []string{"name", "event_name"}},
	{name: "category", aliases: []string{"category", "event_type"}},
	{name: "venue", aliases: []string{"venue", "venue_name"}},
	{name: "lat", aliases: []string{"lat", "latitude", "venue_lat"}, required: true},
	{name: "lon", aliases: []string{"lon", "lng", "longitude", "venue_lon"}, required: true},
	{name: "start", aliases: []string{"start", "start_date", "event_date"}, required: true},
	{name: "end", aliases: []string{"end", "end_date"}},
}

var sampleColumns = []column{
	{name: "price", aliases: []string{"price", "base_price", "current_price"}, required: true},
	{name: "observed_price", aliases: []string{"observed_price"}, required: true},
	{name: "lat", aliases: []string{"listing_lat", "lat", "latitude"}, required: true},
	{name: "lon", aliases: []string{"listing_lon", "lon", "lng", "longitude"}, required: true},
	{name: "event_lat", aliases: []string{"event_lat", "venue_lat"}, required: true},
	{name: "event_lon", aliases: []string{"event_lon", "venue_lon", "venue_lng"}, required: true},
	{name: "start", aliases: []string{"start", "start_date", "event_date"}, required: true},
	{name: "end", aliases: []string{"end", "end_date"}},
	{name: "category", aliases: []string{"category", "event_type"}},
	{name: "as_of", aliases: []string{"as_of", "observed_on"}},
	{name: "available_nights", aliases: []string{"available_nights"}},
}

// errMissing is wrapped by field errors for empty required cells.
var errMissing = errors.New("value is required")

// resolveHeader maps logical column names to positions in header. Header
// names are matched case-insensitively; a UTF-8 BOM on the first cell is
// ignored.
func resolveHeader(source string, header []string, columns []column) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	cols := make(map[string]int, len(columns))
	for _, c := range columns {
		for _, alias := range c.aliases {
			if idx, ok := positions[alias]; ok {
				cols[c.name] = idx
				break
			}
		}
		if _, ok := cols[c.name]; !ok && c.required {
			return nil, fmt.Errorf("ingest: %s: missing required column %q (accepted: %s)",
				source, c.name, strings.Join(c.aliases, ", "))
		}
	}
	return cols, nil
}

// record is one row addressed by logical column name.
type record struct {
	cells []string
	cols  map[string]int
}

func (r record) get(name string) string {
	idx, ok := r.cols[name]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// fieldError builds an IngestionError for one cell.
func fieldError(source string, row int, id, field string, err error) *models.IngestionError {
	return &models.IngestionError{Source: source, Row: row, ID: id, Field: field, Err: err}
}

// validationError converts a struct validation failure into an
// IngestionError naming the first failing field.
func validationError(source string, row int, id string, verr *validation.RequestValidationError) *models.IngestionError {
	field := ""
	if fields := verr.Fields(); len(fields) > 0 {
		field = fields[0]
	}
	return fieldError(source, row, id, field, verr)
}

// parseFloat parses a finite number. Empty cells yield errMissing.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errMissing
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar day.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errMissing
	}
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return models.Day(t), nil
}

// ParseAvailability parses a ';'-separated list of inclusive date ranges,
// each "YYYY-MM-DD..YYYY-MM-DD" or a single date. An empty cell yields no
// ranges.
func ParseAvailability(s string) ([]models.DateRange, error) {
	var out []models.DateRange
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		startStr, endStr, isRange := strings.Cut(part, "..")
		start, err := parseDate(strings.TrimSpace(startStr))
		if err != nil {
			return nil, err
		}
		if !isRange {
			out = append(out, models.SingleDay(start))
			continue
		}
		end, err := parseDate(strings.TrimSpace(endStr))
		if err != nil {
			return nil, err
		}
		r, err := models.NewDateRange(start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatAvailability is the inverse of ParseAvailability.
func FormatAvailability(ranges []models.DateRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.Start.Format(models.DateLayout) + ".." + r.End.Format(models.DateLayout)
	}
	return strings.Join(parts, ";")
}
