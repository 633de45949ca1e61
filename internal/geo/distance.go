// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package geo provides great-circle distance and the geospatial indexes used
// to find events within a radius of a listing.
//
// Callers depend only on the Index interface. Two implementations exist:
//
//   - LinearIndex: O(n) scan, adequate for a few thousand events
//   - GridIndex: spatial hash grid, O(k) in the number of nearby entries
//
// Both return exactly the same set for the same query; the grid only prunes
// which points are measured.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distance.
const EarthRadiusKm = 6371.0

// kmPerDegree approximates the length of one degree of latitude. It is a
// slight underestimate of the true value (about 111.19 km), so degree spans
// derived from it are never too small.
const kmPerDegree = 111.0

// Haversine returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// ValidCoordinate reports whether lat/lon are finite and within
// [-90,90] and [-180,180].
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
