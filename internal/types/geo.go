// README: Shared geographic value objects used across modules.
package types

import "fmt"

type ID string

// Point is a WGS-84 coordinate. Longitude comes first to match GeoJSON and the
// routing providers' wire order.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
}

// Valid reports whether p lies within WGS-84 longitude/latitude ranges.
func (p Point) Valid() bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Bounds is an axis-aligned box spanning a set of points.
type Bounds struct {
	SouthWest Point `json:"south_west"`
	NorthEast Point `json:"north_east"`
}
