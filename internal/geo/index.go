// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package geo

import (
	"errors"
	"fmt"
)

// Index kinds accepted by New.
const (
	KindLinear = "linear"
	KindGrid   = "grid"
)

// ErrInvalidPoint is returned when an index is built from a point with
// out-of-range coordinates. Coordinates are validated at ingestion, so this
// indicates a defect upstream.
var ErrInvalidPoint = errors.New("geo: invalid point coordinates")

// Point is an identified location to be indexed.
type Point struct {
	ID  string
	Lat float64
	Lon float64
}

// Hit is a point found by a radius query, with its distance from the query
// location.
type Hit struct {
	ID         string
	DistanceKm float64
}

// Index answers "which points lie within radiusKm of (lat, lon)".
// Results are unordered. A radius <= 0 or an invalid query location yields
// no hits. Implementations are safe for concurrent queries once built.
type Index interface {
	Query(lat, lon, radiusKm float64) []Hit
	Len() int
}

// New builds an index of the given kind. An empty kind selects the grid.
func New(kind string, points []Point, cellSizeKm float64) (Index, error) {
	switch kind {
	case KindLinear:
		return NewLinearIndex(points)
	case KindGrid, "":
		return NewGridIndex(points, cellSizeKm)
	default:
		return nil, fmt.Errorf("geo: unknown index kind %q", kind)
	}
}

func validatePoints(points []Point) error {
	for i := range points {
		if !ValidCoordinate(points[i].Lat, points[i].Lon) {
			return fmt.Errorf("%w: %s (%v, %v)", ErrInvalidPoint, points[i].ID, points[i].Lat, points[i].Lon)
		}
	}
	return nil
}

func validQuery(lat, lon, radiusKm float64) bool {
	return radiusKm > 0 && ValidCoordinate(lat, lon)
}
