// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package temporal decides whether a listing's availability intersects an
// event's dates.
//
// Overlap is inclusive and day-granular: a listing available 2024-07-01..10
// overlaps a single-day event on 2024-07-10. Availability may be several
// disjoint ranges; any one of them overlapping is enough.
package temporal

import (
	"fmt"
	"time"

	"github.com/tomtom215/eventbnb/internal/models"
)

// Policy decides how listings without availability data are treated.
type Policy string

const (
	// PolicyExclude treats a listing without availability as never available.
	PolicyExclude Policy = "exclude"
	// PolicyAlways treats a listing without availability as always available.
	PolicyAlways Policy = "always"
)

// DefaultPolicy is used when no policy is configured.
const DefaultPolicy = PolicyExclude

// ParsePolicy validates a configured policy name. An empty name selects
// DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return DefaultPolicy, nil
	case PolicyExclude, PolicyAlways:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("temporal: unknown missing-availability policy %q", s)
	}
}

// Window widens an event's dates before overlap is tested: a listing free
// Before days ahead of the event or After days past its end still counts.
type Window struct {
	Before int `koanf:"before" validate:"gte=0,lte=60"`
	After  int `koanf:"after" validate:"gte=0,lte=60"`
}

// Filter is the temporal half of the listing-event join. The zero value
// excludes listings without availability and applies no window.
type Filter struct {
	Policy Policy
	Window Window

	// AsOf is the reference date for DaysUntil and UpcomingOnly.
	AsOf time.Time
	// UpcomingOnly rejects events that ended before AsOf.
	UpcomingOnly bool
}

// EventWindow returns the event's dates widened by the filter window.
func (f *Filter) EventWindow(e *models.Event) models.DateRange {
	return e.Span().Widen(f.Window.Before, f.Window.After)
}

// Overlaps reports whether the listing is available at some point during
// the (widened) event dates.
func (f *Filter) Overlaps(l *models.Listing, e *models.Event) bool {
	if f.UpcomingOnly && !f.AsOf.IsZero() && models.Day(e.End).Before(models.Day(f.AsOf)) {
		return false
	}
	if !l.HasAvailability() {
		return f.Policy == PolicyAlways
	}

	window := f.EventWindow(e)
	for _, r := range l.Availability {
		if r.Overlaps(window) {
			return true
		}
	}
	return false
}

// DaysUntil returns the whole days from AsOf to the event start. It is
// negative for events that started before AsOf.
func (f *Filter) DaysUntil(e *models.Event) int {
	return models.DaysBetween(f.AsOf, e.Start)
}

// AvailableNights counts the listing's available days inside the widened
// event window. Listings without availability under PolicyAlways report
// the full window.
func (f *Filter) AvailableNights(l *models.Listing, e *models.Event) int {
	window := f.EventWindow(e)
	if !l.HasAvailability() {
		if f.Policy == PolicyAlways {
			return window.Days()
		}
		return 0
	}
	return l.AvailableNights(window)
}
