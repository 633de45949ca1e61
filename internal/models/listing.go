// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package models

import (
	"sort"
	"time"
)

// Listing is a short-term rental property as ingested from a listing source.
type Listing struct {
	ID           string      `json:"listing_id"`
	Name         string      `json:"name,omitempty"`
	Latitude     float64     `json:"lat"`
	Longitude    float64     `json:"lon"`
	BasePrice    float64     `json:"price"`
	Availability []DateRange `json:"availability"`
	Description  string      `json:"description,omitempty"`
}

// HasAvailability reports whether any availability data was supplied.
func (l *Listing) HasAvailability() bool {
	return len(l.Availability) > 0
}

// AvailableNights counts the available days of the listing inside window.
// Overlapping availability ranges are counted once per day.
func (l *Listing) AvailableNights(window DateRange) int {
	parts := make([]DateRange, 0, len(l.Availability))
	for _, r := range l.Availability {
		if in, ok := r.Intersect(window); ok {
			parts = append(parts, in)
		}
	}
	if len(parts) == 0 {
		return 0
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].Start.Before(parts[j].Start) })

	total := 0
	var coveredUntil time.Time
	for i, p := range parts {
		start := p.Start
		if i > 0 && !start.After(coveredUntil) {
			start = coveredUntil.AddDate(0, 0, 1)
		}
		if !start.After(p.End) {
			total += DaysBetween(start, p.End) + 1
		}
		if i == 0 || p.End.After(coveredUntil) {
			coveredUntil = p.End
		}
	}
	return total
}

// ListingsByID returns listings deduplicated by ID, the last occurrence
// winning, ordered by ID.
func ListingsByID(listings []Listing) []Listing {
	idx := make(map[string]int, len(listings))
	out := make([]Listing, 0, len(listings))
	for i := range listings {
		if pos, ok := idx[listings[i].ID]; ok {
			out[pos] = listings[i]
			continue
		}
		idx[listings[i].ID] = len(out)
		out = append(out, listings[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
