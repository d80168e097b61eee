// Package geo contains pure geographic computation helpers shared by the
// routing and map-sync modules.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"wayfinder/internal/types"
)

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b types.Point) float64 {
	return orbgeo.DistanceHaversine(toOrb(a), toOrb(b))
}

// PathLengthMeters sums the great-circle length of consecutive segments.
func PathLengthMeters(points []types.Point) float64 {
	return orbgeo.LengthHaversign(toLineString(points))
}

// BoundsOf returns the bounding box of points. An empty slice yields the zero Bounds.
func BoundsOf(points []types.Point) types.Bounds {
	if len(points) == 0 {
		return types.Bounds{}
	}
	b := toLineString(points).Bound()
	return types.Bounds{
		SouthWest: fromOrb(b.Min),
		NorthEast: fromOrb(b.Max),
	}
}

// Interpolate returns segments+1 evenly spaced points from a to b inclusive.
// Both endpoints are returned exactly as given.
func Interpolate(a, b types.Point, segments int) []types.Point {
	if segments < 1 {
		segments = 1
	}
	out := make([]types.Point, 0, segments+1)
	out = append(out, a)
	for i := 1; i < segments; i++ {
		f := float64(i) / float64(segments)
		out = append(out, types.Point{
			Lng: a.Lng + (b.Lng-a.Lng)*f,
			Lat: a.Lat + (b.Lat-a.Lat)*f,
		})
	}
	return append(out, b)
}

// FormatCoordinates renders p as "lat, lng" with six decimals, the label used
// for places the geocoder could not name.
func FormatCoordinates(p types.Point) string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
}

func toLineString(points []types.Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = toOrb(p)
	}
	return ls
}

func toOrb(p types.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func fromOrb(p orb.Point) types.Point {
	return types.Point{Lng: p.Lon(), Lat: p.Lat()}
}
