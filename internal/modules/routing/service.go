// README: Route calculator turns a pair of Locations into a Route, with an optional straight-line fallback.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"wayfinder/internal/geo"
	"wayfinder/internal/maps"
	"wayfinder/internal/metrics"
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/types"
)

const (
	// DefaultFallbackSpeedKmh is the placeholder speed used to estimate fallback durations.
	DefaultFallbackSpeedKmh = 35.0
	fallbackSegments        = 8
	fallbackInstruction     = "Head towards destination"
	defaultProviderTimeout  = 30 * time.Second
)

type Config struct {
	// Fallback serves a straight-line route when the provider is unavailable.
	Fallback         bool
	FallbackSpeedKmh float64
	// ProviderTimeout bounds a shared provider call, which outlives any single caller.
	ProviderTimeout time.Duration
}

type Calculator struct {
	router maps.Router
	cache  *Cache
	group  singleflight.Group
	cfg    Config
	log    *zap.Logger
}

// NewCalculator builds a calculator. cache may be nil.
func NewCalculator(router maps.Router, cache *Cache, cfg Config, log *zap.Logger) *Calculator {
	if cfg.FallbackSpeedKmh <= 0 {
		cfg.FallbackSpeedKmh = DefaultFallbackSpeedKmh
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Calculator{router: router, cache: cache, cfg: cfg, log: log}
}

// Calculate returns a driving route from origin to destination.
//
// It fails with ErrNoRouteFound when the provider confirms there is no path,
// and with ErrProviderUnavailable on transport or payload failures unless the
// fallback is enabled, in which case a straight-line route is returned instead.
func (c *Calculator) Calculate(ctx context.Context, origin, destination geolookup.Location) (*Route, error) {
	if !origin.Coordinates.Valid() || !destination.Coordinates.Valid() {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidEndpoint, origin.Coordinates, destination.Coordinates)
	}

	d, err := c.directions(ctx, origin.Coordinates, destination.Coordinates)
	if err != nil && ctx.Err() != nil {
		// The caller gave up; neither a notice nor a fallback is wanted.
		return nil, ctx.Err()
	}
	switch {
	case err == nil:
		return buildRoute(origin, destination, d), nil
	case errors.Is(err, maps.ErrNoRoute):
		return nil, fmt.Errorf("%w: %v", ErrNoRouteFound, err)
	case c.cfg.Fallback:
		c.log.Warn("routing provider unavailable, serving straight-line route",
			zap.Stringer("origin", origin.Coordinates),
			zap.Stringer("destination", destination.Coordinates),
			zap.Error(err))
		metrics.FallbackRoutes.Inc()
		return c.fallbackRoute(origin, destination), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}

// directions consults the cache, then shares one provider call among
// concurrent identical requests. The shared call is detached from every
// caller's cancellation; each caller stops waiting when its own ctx ends.
func (c *Calculator) directions(ctx context.Context, origin, destination types.Point) (maps.Directions, error) {
	if c.cache != nil {
		if d, ok := c.cache.Get(origin, destination); ok {
			return d, nil
		}
	}

	ch := c.group.DoChan(cacheKey(origin, destination), func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ProviderTimeout)
		defer cancel()

		d, err := c.router.Route(callCtx, origin, destination)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, fmt.Errorf("%w: empty directions", maps.ErrUnavailable)
		}
		if c.cache != nil {
			c.cache.Add(origin, destination, *d)
		}
		return *d, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return maps.Directions{}, res.Err
		}
		return res.Val.(maps.Directions), nil
	case <-ctx.Done():
		return maps.Directions{}, ctx.Err()
	}
}

// buildRoute pins the geometry to the exact endpoint coordinates and assigns
// sequential step ids. Provider text and numbers are kept verbatim; a missing
// total distance is measured along the geometry.
func buildRoute(origin, destination geolookup.Location, d maps.Directions) *Route {
	geometry := make([]types.Point, 0, len(d.Geometry)+2)
	if len(d.Geometry) == 0 || d.Geometry[0] != origin.Coordinates {
		geometry = append(geometry, origin.Coordinates)
	}
	geometry = append(geometry, d.Geometry...)
	if geometry[len(geometry)-1] != destination.Coordinates || len(geometry) < 2 {
		geometry = append(geometry, destination.Coordinates)
	}

	r := &Route{
		ID:              types.ID(uuid.NewString()),
		Origin:          origin,
		Destination:     destination,
		DistanceMeters:  nonNegative(d.DistanceMeters),
		DurationSeconds: nonNegative(d.DurationSeconds),
		Geometry:        geometry,
	}
	if r.DistanceMeters == 0 {
		r.DistanceMeters = geo.PathLengthMeters(geometry)
	}

	last := origin.Coordinates
	for _, s := range d.Steps {
		coords := s.Geometry
		if len(coords) == 0 {
			coords = []types.Point{last}
		}
		last = coords[len(coords)-1]
		r.Steps = append(r.Steps, RouteStep{
			ID:              stepID(len(r.Steps)),
			Instruction:     s.Instruction,
			DistanceMeters:  nonNegative(s.DistanceMeters),
			DurationSeconds: nonNegative(s.DurationSeconds),
			Coordinates:     coords,
		})
	}
	if len(r.Steps) == 0 {
		r.Steps = []RouteStep{{
			ID:              stepID(0),
			Instruction:     fallbackInstruction,
			DistanceMeters:  r.DistanceMeters,
			DurationSeconds: r.DurationSeconds,
			Coordinates:     geometry,
		}}
	}
	return r
}

func (c *Calculator) fallbackRoute(origin, destination geolookup.Location) *Route {
	geometry := geo.Interpolate(origin.Coordinates, destination.Coordinates, fallbackSegments)
	distance := geo.DistanceMeters(origin.Coordinates, destination.Coordinates)
	duration := distance / (c.cfg.FallbackSpeedKmh * 1000 / 3600)
	return &Route{
		ID:              types.ID(uuid.NewString()),
		Origin:          origin,
		Destination:     destination,
		DistanceMeters:  distance,
		DurationSeconds: math.Round(duration),
		Geometry:        geometry,
		Steps: []RouteStep{{
			ID:              stepID(0),
			Instruction:     fallbackInstruction,
			DistanceMeters:  distance,
			DurationSeconds: math.Round(duration),
			Coordinates:     geometry,
		}},
		Fallback: true,
	}
}

func stepID(i int) types.ID {
	return types.ID(fmt.Sprintf("step-%d", i))
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
