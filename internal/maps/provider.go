// Package maps adapts third-party geocoding and routing providers to the
// Geocoder and Router contracts consumed by the lookup and routing modules.
package maps

import (
	"context"
	"errors"
	"strings"

	"wayfinder/internal/types"
)

var (
	// ErrNoRoute means the provider answered and confirmed there is no path.
	ErrNoRoute = errors.New("no route between points")
	// ErrUnavailable covers transport failures, bad statuses and undecodable payloads.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNotFound means the geocoder has no place for the request.
	ErrNotFound = errors.New("no place found")
)

// MaxCandidates is the most forward-search results any provider is asked for.
const MaxCandidates = 5

// Place is a provider-neutral geocoding result.
type Place struct {
	ProviderID string
	Name       string
	Address    string
	Position   types.Point
}

// Directions is a provider-neutral driving route.
type Directions struct {
	DistanceMeters  float64
	DurationSeconds float64
	Geometry        []types.Point
	Steps           []Step
}

// Step is one maneuver of Directions, in traversal order.
type Step struct {
	Instruction     string
	DistanceMeters  float64
	DurationSeconds float64
	Geometry        []types.Point
}

type Geocoder interface {
	// Search returns up to limit candidates in provider rank order.
	Search(ctx context.Context, query string, limit int) ([]Place, error)
	Reverse(ctx context.Context, p types.Point) (*Place, error)
}

type Router interface {
	// Route returns driving directions from origin to destination.
	Route(ctx context.Context, origin, destination types.Point) (*Directions, error)
}

// SplitDisplayName turns a provider display name such as "123 Main St, NYC"
// into a short name ("123 Main St") and the full address.
func SplitDisplayName(display string) (name, address string) {
	address = strings.TrimSpace(display)
	name = address
	if i := strings.Index(address, ","); i >= 0 {
		name = strings.TrimSpace(address[:i])
	}
	return name, address
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxCandidates {
		return MaxCandidates
	}
	return limit
}
