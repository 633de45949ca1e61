// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in inputs and outputs.
const DateLayout = "2006-01-02"

// Day returns the calendar date of t as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// The result is negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a normalized range. It returns an error when end
// precedes start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("range end %s before start %s",
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// SingleDay returns the range covering only the day of t.
func SingleDay(t time.Time) DateRange {
	d := Day(t)
	return DateRange{Start: d, End: d}
}

// Contains reports whether day falls within the range, inclusive.
func (r DateRange) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

// Intersect returns the shared days of both ranges and whether there are any.
func (r DateRange) Intersect(o DateRange) (DateRange, bool) {
	if !r.Overlaps(o) {
		return DateRange{}, false
	}
	out := r
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, true
}

// Widen extends the range by before days at the start and after days at the end.
func (r DateRange) Widen(before, after int) DateRange {
	return DateRange{
		Start: r.Start.AddDate(0, 0, -before),
		End:   r.End.AddDate(0, 0, after),
	}
}

// Days returns the number of days covered, inclusive of both ends.
func (r DateRange) Days() int {
	return DaysBetween(r.Start, r.End) + 1
}

// String formats the range as "YYYY-MM-DD..YYYY-MM-DD", or a single date.
func (r DateRange) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.Format(DateLayout)
	}
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}
