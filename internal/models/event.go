// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package models

import (
	"sort"
	"time"
)

// Event is a dated occurrence at a venue with known coordinates.
type Event struct {
	ID        string    `json:"event_id"`
	Name      string    `json:"event_name,omitempty"`
	Category  string    `json:"event_type,omitempty"`
	VenueName string    `json:"venue_name,omitempty"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Span returns the calendar days the event covers. End equal to Start is a
// single-day event.
func (e *Event) Span() DateRange {
	r := DateRange{Start: Day(e.Start), End: Day(e.End)}
	if r.End.Before(r.Start) {
		r.End = r.Start
	}
	return r
}

// DurationDays returns the number of calendar days the event covers.
func (e *Event) DurationDays() int {
	return e.Span().Days()
}

// EventsByID returns events deduplicated by ID, the last occurrence winning,
// ordered by ID.
func EventsByID(events []Event) []Event {
	idx := make(map[string]int, len(events))
	out := make([]Event, 0, len(events))
	for i := range events {
		if pos, ok := idx[events[i].ID]; ok {
			out[pos] = events[i]
			continue
		}
		idx[events[i].ID] = len(out)
		out = append(out, events[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
