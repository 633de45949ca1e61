// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package ingest

import (
	"fmt"
	"io"
	"strconv"

	"github.com/tomtom215/eventbnb/internal/geo"
	"github.com/tomtom215/eventbnb/internal/models"
	"github.com/tomtom215/eventbnb/internal/pricing"
	"github.com/tomtom215/eventbnb/internal/validation"
)

type sampleRow struct {
	Price         float64 `json:"price" validate:"gt=0"`
	ObservedPrice float64 `json:"observed_price" validate:"gt=0"`
	Latitude      float64 `json:"lat" validate:"latitude"`
	Longitude     float64 `json:"lon" validate:"longitude"`
	EventLat      float64 `json:"event_lat" validate:"latitude"`
	EventLon      float64 `json:"event_lon" validate:"longitude"`
}

// ReadSamples parses historical training observations. Each row describes a
// listing, the event it was near, and the nightly price actually charged:
//
//	price, observed_price                      required
//	listing_lat|lat, listing_lon|lon           required
//	event_lat|venue_lat, event_lon|venue_lon   required
//	start                                      required
//	end, category                              optional
//	as_of|observed_on    date the price was observed, defaults to start
//	available_nights     defaults to the event duration
func ReadSamples(r io.Reader) ([]pricing.Sample, *Report, error) {
	report := newReport(SourceSamples)
	var out []pricing.Sample

	err := readCSV(r, SourceSamples, sampleColumns,
		func(rec record, row int) {
			s, ierr := parseSample(rec, row)
			if ierr != nil {
				report.reject(ierr)
				return
			}
			report.accept()
			out = append(out, s)
		},
		func(row int, err error) {
			report.reject(fieldError(SourceSamples, row, "", "", err))
		})
	if err != nil {
		return nil, nil, err
	}

	report.finish()
	return out, report, nil
}

// ReadSamplesFile reads training samples CSV from path.
func ReadSamplesFile(path string) ([]pricing.Sample, *Report, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file
	return ReadSamples(f)
}

func parseSample(rec record, row int) (pricing.Sample, *models.IngestionError) {
	fail := func(field string, err error) (pricing.Sample, *models.IngestionError) {
		return pricing.Sample{}, fieldError(SourceSamples, row, "", field, err)
	}

	var v sampleRow
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"price", &v.Price},
		{"observed_price", &v.ObservedPrice},
		{"lat", &v.Latitude},
		{"lon", &v.Longitude},
		{"event_lat", &v.EventLat},
		{"event_lon", &v.EventLon},
	} {
		n, err := parseFloat(rec.get(f.name))
		if err != nil {
			return fail(f.name, err)
		}
		*f.dst = n
	}
	if verr := validation.ValidateStruct(&v); verr != nil {
		return pricing.Sample{}, validationError(SourceSamples, row, "", verr)
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
	if end.Before(start) {
		return fail("end", fmt.Errorf("end %s before start %s", end.Format(models.DateLayout), start.Format(models.DateLayout)))
	}
	asOf := start
	if s := rec.get("as_of"); s != "" {
		if asOf, err = parseDate(s); err != nil {
			return fail("as_of", err)
		}
	}

	listing := models.Listing{BasePrice: v.Price, Latitude: v.Latitude, Longitude: v.Longitude}
	event := models.Event{Category: rec.get("category"), Latitude: v.EventLat, Longitude: v.EventLon, Start: start, End: end}

	nights := event.DurationDays()
	if s := rec.get("available_nights"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return fail("available_nights", fmt.Errorf("invalid night count %q", s))
		}
		nights = n
	}

	distance := geo.Haversine(v.Latitude, v.Longitude, v.EventLat, v.EventLon)
	return pricing.Sample{
		Features:      pricing.Extract(&listing, &event, distance, models.DaysBetween(asOf, start), nights),
		ObservedPrice: v.ObservedPrice,
	}, nil
}
