// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

/*
Package models defines the data types shared across EventBnb: listings,
events, the derived listing-event pair, and the error taxonomy used to report
skipped rows and pairs.

Listings and events are immutable once ingested. A ListingEventPair is only
ever produced by the matcher and price model; it is recomputed in full on
every pipeline run and never updated in place.

All calendar arithmetic is day-granular: dates are normalized to UTC
midnight with Day before they are compared.
*/
package models
