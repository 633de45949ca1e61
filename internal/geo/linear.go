// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package geo

// LinearIndex measures every point on each query.
type LinearIndex struct {
	points []Point
}

// NewLinearIndex copies points into a linear-scan index.
func NewLinearIndex(points []Point) (*LinearIndex, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return &LinearIndex{points: cp}, nil
}

// Query returns every point within radiusKm of (lat, lon).
func (x *LinearIndex) Query(lat, lon, radiusKm float64) []Hit {
	if !validQuery(lat, lon, radiusKm) {
		return nil
	}
	var hits []Hit
	for i := range x.points {
		p := &x.points[i]
		if d := Haversine(lat, lon, p.Lat, p.Lon); d <= radiusKm {
			hits = append(hits, Hit{ID: p.ID, DistanceKm: d})
		}
	}
	return hits
}

// Len returns the number of indexed points.
func (x *LinearIndex) Len() int {
	return len(x.points)
}
