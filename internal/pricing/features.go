// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package pricing

import (
	"math"
	"strings"
	"time"

	"github.com/tomtom215/eventbnb/internal/models"
)

// Days-until values are clamped to this range before scoring.
const (
	MinDaysUntil = -365
	MaxDaysUntil = 730
)

// OtherCategory collects empty and unseen event categories.
const OtherCategory = "other"

// Features is the model input derived from a matched listing-event pair.
type Features struct {
	BasePrice       float64
	DistanceKm      float64
	DaysUntil       int
	DurationDays    int
	Weekend         bool
	AvailableNights int
	Category        string
}

// Extract builds the features for a listing matched to an event.
func Extract(l *models.Listing, e *models.Event, distanceKm float64, daysUntil, availableNights int) Features {
	return Features{
		BasePrice:       l.BasePrice,
		DistanceKm:      distanceKm,
		DaysUntil:       clampInt(daysUntil, MinDaysUntil, MaxDaysUntil),
		DurationDays:    e.DurationDays(),
		Weekend:         touchesWeekend(e.Span()),
		AvailableNights: availableNights,
		Category:        NormalizeCategory(e.Category),
	}
}

// NormalizeCategory lowercases and trims a category, mapping empty to OtherCategory.
func NormalizeCategory(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return OtherCategory
	}
	return c
}

// numericFeatureNames names the columns produced by numeric, in order.
var numericFeatureNames = []string{
	"log_base_price",
	"distance_km",
	"days_until",
	"duration_days",
	"weekend",
	"available_nights",
}

// continuousFeatures marks the numeric columns subject to the training-range
// check. Indicator columns are exempt; rare values are legitimately far
// from their mean.
var continuousFeatures = []bool{true, true, true, true, false, true}

// numeric returns the continuous part of the feature vector.
func (f *Features) numeric() []float64 {
	weekend := 0.0
	if f.Weekend {
		weekend = 1
	}
	return []float64{
		math.Log(f.BasePrice),
		f.DistanceKm,
		float64(f.DaysUntil),
		float64(f.DurationDays),
		weekend,
		float64(f.AvailableNights),
	}
}

// check rejects feature values no model can score.
func (f *Features) check() error {
	switch {
	case math.IsNaN(f.BasePrice) || math.IsInf(f.BasePrice, 0) || f.BasePrice <= 0:
		return unscored("base price %v", f.BasePrice)
	case math.IsNaN(f.DistanceKm) || math.IsInf(f.DistanceKm, 0) || f.DistanceKm < 0:
		return unscored("distance %v", f.DistanceKm)
	case f.DurationDays < 1:
		return unscored("event duration %d days", f.DurationDays)
	case f.AvailableNights < 0:
		return unscored("available nights %d", f.AvailableNights)
	}
	return nil
}

// touchesWeekend reports whether any day of r is a Friday or Saturday night.
func touchesWeekend(r models.DateRange) bool {
	if r.Days() >= 7 {
		return true
	}
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Friday || wd == time.Saturday {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
