// README: Route and step models produced by the calculator.
package routing

import (
	"errors"

	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/types"
)

var (
	ErrNoRouteFound        = errors.New("no route found")
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	ErrInvalidEndpoint     = errors.New("invalid route endpoint")
)

type RouteStep struct {
	ID              types.ID      `json:"id"`
	Instruction     string        `json:"instruction"`
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
	Coordinates     []types.Point `json:"coordinates"`
}

// Route is replaced wholesale on every calculation, never edited in place.
// Geometry starts at Origin.Coordinates and ends at Destination.Coordinates.
type Route struct {
	ID              types.ID           `json:"id"`
	Origin          geolookup.Location `json:"origin"`
	Destination     geolookup.Location `json:"destination"`
	DistanceMeters  float64            `json:"distance_meters"`
	DurationSeconds float64            `json:"duration_seconds"`
	Geometry        []types.Point      `json:"geometry"`
	Steps           []RouteStep        `json:"steps"`
	// Fallback marks a straight-line estimate served while the provider was down.
	Fallback bool `json:"fallback"`
}

// Step returns the step with the given id.
func (r *Route) Step(id types.ID) (RouteStep, bool) {
	for _, s := range r.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return RouteStep{}, false
}
