// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package models

import "time"

// PriceLevel classifies a listing's current price against the predicted one.
type PriceLevel string

const (
	PriceBelowMarket PriceLevel = "below_market"
	PriceFair        PriceLevel = "fair"
	PriceAboveMarket PriceLevel = "above_market"
)

// ListingEventPair is one row of the pipeline output: a listing matched to a
// nearby event whose dates intersect the listing availability, scored by a
// specific model version.
//
// The first six fields form the core output table. The remaining fields are
// display columns for lookups and description generation.
type ListingEventPair struct {
	ListingID      string  `json:"listing_id"`
	EventID        string  `json:"event_id"`
	DistanceKm     float64 `json:"distance_km"`
	DateOverlap    bool    `json:"date_overlap"`
	PredictedPrice float64 `json:"predicted_price"`
	ModelVersion   string  `json:"model_version"`

	EventName      string     `json:"event_name,omitempty"`
	EventType      string     `json:"event_type,omitempty"`
	EventDate      time.Time  `json:"event_date"`
	VenueName      string     `json:"venue_name,omitempty"`
	DaysUntilEvent int        `json:"days_until_event"`
	CurrentPrice   float64    `json:"current_price"`
	PriceLevel     PriceLevel `json:"price_level,omitempty"`
}

// PairRef identifies a listing-event pair without its scored values.
type PairRef struct {
	ListingID string `json:"listing_id"`
	EventID   string `json:"event_id"`
}

// Ref returns the pair's identifying key.
func (p *ListingEventPair) Ref() PairRef {
	return PairRef{ListingID: p.ListingID, EventID: p.EventID}
}
