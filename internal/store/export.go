// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tomtom215/eventbnb/internal/models"
)

// CSVHeader is the column order of WriteCSV: the six pair-table columns,
// then the display columns used by lookups.
var CSVHeader = []string{
	"listing_id",
	"event_id",
	"distance_km",
	"date_overlap",
	"predicted_price",
	"model_version",
	"event_name",
	"event_type",
	"event_date",
	"venue_name",
	"days_until_event",
	"current_price",
	"price_level",
}

// WriteCSV writes pairs with a header row.
func WriteCSV(w io.Writer, pairs []models.ListingEventPair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range pairs {
		p := &pairs[i]
		if err := cw.Write([]string{
			p.ListingID,
			p.EventID,
			strconv.FormatFloat(p.DistanceKm, 'f', 3, 64),
			strconv.FormatBool(p.DateOverlap),
			strconv.FormatFloat(p.PredictedPrice, 'f', 2, 64),
			p.ModelVersion,
			p.EventName,
			p.EventType,
			formatDate(p.EventDate),
			p.VenueName,
			strconv.Itoa(p.DaysUntilEvent),
			strconv.FormatFloat(p.CurrentPrice, 'f', 2, 64),
			string(p.PriceLevel),
		}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
