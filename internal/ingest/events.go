// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package ingest

import (
	"io"

	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/validation"
)

type eventRow struct {
	ID        string  `json:"event_id" validate:"required,max=128"`
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" validate:"longitude"`
}

// ReadEvents parses events CSV from r.
//
// Recognized columns:
//
//	event_id | id                        required
//	lat | latitude | venue_lat           required
//	lon | lng | longitude | venue_lon    required
//	start | start_date | event_date      required
//	end | end_date                       optional, defaults to start
//	name | event_name, category | event_type, venue | venue_name   optional
func ReadEvents(r io.Reader) ([]models.Event, *Report, error) {
	report := newReport(SourceEvents)
	var out []models.Event

	err := readCSV(r, SourceEvents, eventColumns,
		func(rec record, row int) {
			e, ierr := parseEvent(rec, row)
			if ierr != nil {
				report.reject(ierr)
				return
			}
			report.accept()
			out = append(out, e)
		},
		func(row int, err error) {
			report.reject(fieldError(SourceEvents, row, "", "", err))
		})
	if err != nil {
		return nil, nil, err
	}

	report.finish()
	return out, report, nil
}

// ReadEventsFile reads events CSV from path.
func ReadEventsFile(path string) ([]models.Event, *Report, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file
	return ReadEvents(f)
}

func parseEvent(rec record, row int) (models.Event, *models.IngestionError) {
	id := rec.get("event_id")
	fail := func(field string, err error) (models.Event, *models.IngestionError) {
		return models.Event{}, fieldError(SourceEvents, row, id, field, err)
	}

	lat, err := parseFloat(rec.get("lat"))
	if err != nil {
		return fail("lat", err)
	}
	lon, err := parseFloat(rec.get("lon"))
	if err != nil {
		return fail("lon", err)
	}

	v := eventRow{ID: id, Latitude: lat, Longitude: lon}
	if verr := validation.ValidateStruct(&v); verr != nil {
		return models.Event{}, validationError(SourceEvents, row, id, verr)
	}

	start, err := parseDate(rec.get("start"))
	if err != nil {
		return fail("start", err)
	}
	end := start
	if s := rec.get("end"); s != "" {
		if end, err = parseDate(s); err != nil {
			return fail("end", err)
		}
	}
	span, err := models.NewDateRange(start, end)
	if err != nil {
		return fail("end", err)
	}

	return models.Event{
		ID:        id,
		Name:      rec.get("name"),
		Category:  rec.get("category"),
		VenueName: rec.get("venue"),
		Latitude:  lat,
		Longitude: lon,
		Start:     span.Start,
		End:       span.End,
	}, nil
}
