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

// listingRow carries the validated fields of a listing row.
type listingRow struct {
	ID        string  `json:"listing_id" validate:"required,listingid"`
	Latitude  float64 `json:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" validate:"longitude"`
	Price     float64 `json:"price" validate:"gt=0"`
}

// ReadListings parses listings CSV from r.
//
// Recognized columns (case-insensitive, first alias present wins):
//
//	listing_id | id             required
//	lat | latitude             required
//	lon | lng | longitude      required
//	price | base_price | current_price   required
//	name, availability, description      optional
func ReadListings(r io.Reader) ([]models.Listing, *Report, error) {
	report := newReport(SourceListings)
	var out []models.Listing

	err := readCSV(r, SourceListings, listingColumns,
		func(rec record, row int) {
			l, ierr := parseListing(rec, row)
			if ierr != nil {
				report.reject(ierr)
				return
			}
			report.accept()
			out = append(out, l)
		},
		func(row int, err error) {
			report.reject(fieldError(SourceListings, row, "", "", err))
		})
	if err != nil {
		return nil, nil, err
	}

	report.finish()
	return out, report, nil
}

// ReadListingsFile reads listings CSV from path.
func ReadListingsFile(path string) ([]models.Listing, *Report, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file
	return ReadListings(f)
}

func parseListing(rec record, row int) (models.Listing, *models.IngestionError) {
	id := rec.get("listing_id")
	fail := func(field string, err error) (models.Listing, *models.IngestionError) {
		return models.Listing{}, fieldError(SourceListings, row, id, field, err)
	}

	lat, err := parseFloat(rec.get("lat"))
	if err != nil {
		return fail("lat", err)
	}
	lon, err := parseFloat(rec.get("lon"))
	if err != nil {
		return fail("lon", err)
	}
	price, err := parseFloat(rec.get("price"))
	if err != nil {
		return fail("price", err)
	}

	v := listingRow{ID: id, Latitude: lat, Longitude: lon, Price: price}
	if verr := validation.ValidateStruct(&v); verr != nil {
		return models.Listing{}, validationError(SourceListings, row, id, verr)
	}

	availability, err := ParseAvailability(rec.get("availability"))
	if err != nil {
		return fail("availability", err)
	}

	return models.Listing{
		ID:           id,
		Name:         rec.get("name"),
		Latitude:     lat,
		Longitude:    lon,
		BasePrice:    price,
		Availability: availability,
		Description:  rec.get("description"),
	}, nil
}
