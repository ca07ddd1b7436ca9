// Package geogrid maps coordinates onto the fixed-size lat/lon grid used by the
// historical PM2.5 dataset.
package geogrid

import (
	"errors"
	"math"
	"sort"
)

// Grid errors.
var (
	ErrUndefinedGridSize  = errors.New("grid size undefined: fewer than two distinct latitude centers")
	ErrInvalidGridSize    = errors.New("grid size must be positive and finite")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate lies within the valid lat/lon range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) ||
		c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// GridSize is the edge length of a grid cell in degrees.
type GridSize float64

// Validate reports whether the grid size can be used for bucketing.
func (g GridSize) Validate() error {
	f := float64(g)
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrInvalidGridSize
	}
	return nil
}

// CellIndex identifies a grid cell by its integer row (latitude) and column
// (longitude) bucket. Historical data is keyed by CellIndex so lookups never
// depend on floating-point equality of reconstructed centers.
type CellIndex struct {
	Row int64
	Col int64
}

// Cell is a resolved grid cell.
type Cell struct {
	CenterLat float64
	CenterLon float64
	Index     CellIndex
}

// Center returns the cell center as a Coordinate.
func (c Cell) Center() Coordinate {
	return Coordinate{Lat: c.CenterLat, Lon: c.CenterLon}
}

// Resolve returns the cell containing the coordinate. Bucketing uses a true
// floor, so a coordinate on a boundary belongs to the cell above it and
// negative coordinates fall into the cell toward negative infinity.
func Resolve(c Coordinate, size GridSize) Cell {
	idx := IndexOf(c, size)
	return Cell{
		CenterLat: centerOf(idx.Row, size),
		CenterLon: centerOf(idx.Col, size),
		Index:     idx,
	}
}

// IndexOf returns the integer bucket of the coordinate.
func IndexOf(c Coordinate, size GridSize) CellIndex {
	return CellIndex{
		Row: bucket(c.Lat, size),
		Col: bucket(c.Lon, size),
	}
}

func bucket(v float64, size GridSize) int64 {
	return int64(math.Floor(v / float64(size)))
}

func centerOf(i int64, size GridSize) float64 {
	g := float64(size)
	return float64(i)*g + g/2
}

// DeriveGridSize computes the grid size from the latitude centers present in a
// dataset: the absolute difference between the two smallest distinct values.
func DeriveGridSize(latitudes []float64) (GridSize, error) {
	distinct := make(map[float64]struct{}, len(latitudes))
	for _, lat := range latitudes {
		if math.IsNaN(lat) {
			continue
		}
		distinct[lat] = struct{}{}
	}
	if len(distinct) < 2 {
		return 0, ErrUndefinedGridSize
	}

	sorted := make([]float64, 0, len(distinct))
	for lat := range distinct {
		sorted = append(sorted, lat)
	}
	sort.Float64s(sorted)

	size := GridSize(math.Abs(sorted[1] - sorted[0]))
	if err := size.Validate(); err != nil {
		return 0, err
	}
	return size, nil
}
