// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package geo

import "math"

// DefaultCellSizeKm is the grid cell edge used when none is configured.
const DefaultCellSizeKm = 25.0

// GridIndex divides the globe into cells of roughly equal degree size and
// only measures points in the cells a query circle can reach.
//
// Time Complexity:
//   - Build: O(n)
//   - Query: O(min(ring, occupied) + k) where ring is the number of cells
//     the query circle spans and k the points in the cells it reaches
//
// The index is immutable after construction and needs no locking.
type GridIndex struct {
	cells    map[cellKey][]Point
	cellSize float64 // degrees
	columns  int     // number of longitude cells around the globe
	size     int
}

type cellKey struct {
	X, Y int
}

// NewGridIndex builds a grid over points. cellSizeKm <= 0 selects
// DefaultCellSizeKm.
func NewGridIndex(points []Point, cellSizeKm float64) (*GridIndex, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if cellSizeKm <= 0 {
		cellSizeKm = DefaultCellSizeKm
	}

	cellSize := cellSizeKm / kmPerDegree
	g := &GridIndex{
		cells:    make(map[cellKey][]Point),
		cellSize: cellSize,
		columns:  int(math.Ceil(360 / cellSize)),
		size:     len(points),
	}
	for _, p := range points {
		k := g.key(p.Lat, p.Lon)
		g.cells[k] = append(g.cells[k], p)
	}
	return g, nil
}

// key returns the cell containing lat/lon. Columns wrap at the antimeridian.
func (g *GridIndex) key(lat, lon float64) cellKey {
	x := int(math.Floor((lon + 180) / g.cellSize))
	return cellKey{
		X: g.wrap(x),
		Y: int(math.Floor((lat + 90) / g.cellSize)),
	}
}

func (g *GridIndex) wrap(x int) int {
	x %= g.columns
	if x < 0 {
		x += g.columns
	}
	return x
}

// Query returns every point within radiusKm of (lat, lon).
func (g *GridIndex) Query(lat, lon, radiusKm float64) []Hit {
	if !validQuery(lat, lon, radiusKm) {
		return nil
	}

	var hits []Hit
	g.visit(lat, lon, radiusKm, func(points []Point) {
		for _, p := range points {
			if d := Haversine(lat, lon, p.Lat, p.Lon); d <= radiusKm {
				hits = append(hits, Hit{ID: p.ID, DistanceKm: d})
			}
		}
	})
	return hits
}

// visit calls fn for every occupied cell the query circle can reach and
// returns the number of cells it scanned. When the ring of candidate cells
// outnumbers the occupied cells, it walks the occupied cells instead, so a
// query never scans more than min(ring, occupied) cells.
func (g *GridIndex) visit(lat, lon, radiusKm float64, fn func([]Point)) int {
	radiusDeg := radiusKm / kmPerDegree
	rows := int(math.Ceil(radiusDeg/g.cellSize)) + 1
	cols := g.columnSpan(lat, radiusDeg)
	center := g.key(lat, lon)

	width := 2*cols + 1
	if width > g.columns {
		width = g.columns
	}
	if width*(2*rows+1) > len(g.cells) {
		for k, points := range g.cells {
			if g.inRing(k, center, rows, cols) {
				fn(points)
			}
		}
		return len(g.cells)
	}

	scanned := 0
	seen := make(map[int]struct{}, width)
	for dx := -cols; dx <= cols; dx++ {
		x := g.wrap(center.X + dx)
		if _, dup := seen[x]; dup {
			continue
		}
		seen[x] = struct{}{}

		for dy := -rows; dy <= rows; dy++ {
			scanned++
			if points, ok := g.cells[cellKey{X: x, Y: center.Y + dy}]; ok {
				fn(points)
			}
		}
	}
	return scanned
}

// inRing reports whether k lies within rows/cols cells of center, with
// columns wrapping at the antimeridian.
func (g *GridIndex) inRing(k, center cellKey, rows, cols int) bool {
	dy := k.Y - center.Y
	if dy < -rows || dy > rows {
		return false
	}
	dx := k.X - center.X
	if dx < 0 {
		dx = -dx
	}
	if wrapped := g.columns - dx; wrapped < dx {
		dx = wrapped
	}
	return dx <= cols
}

// columnSpan returns how many longitude cells either side of the center a
// query must scan. For any point within the circle,
// sin(dLon/2) <= sin(r/2) / cos(edge), where edge is the most poleward
// latitude the circle reaches.
func (g *GridIndex) columnSpan(lat, radiusDeg float64) int {
	edge := math.Abs(lat) + radiusDeg
	if edge >= 90 {
		return g.columns
	}
	s := math.Sin(radiusDeg*math.Pi/360) / math.Cos(edge*math.Pi/180)
	if s >= 1 {
		return g.columns
	}
	lonDeg := 2 * math.Asin(s) * 180 / math.Pi
	return int(math.Ceil(lonDeg/g.cellSize)) + 1
}

// Len returns the number of indexed points.
func (g *GridIndex) Len() int {
	return g.size
}

// NumCells returns the number of non-empty cells.
func (g *GridIndex) NumCells() int {
	return len(g.cells)
}
