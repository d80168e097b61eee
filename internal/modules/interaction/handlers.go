package interaction

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"wayfinder/internal/metrics"
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/mapsync"
	"wayfinder/internal/modules/routing"
	"wayfinder/internal/types"
)

// Directions is the directions-panel flow: whether it is open and which
// resolved Locations fill its two endpoints.
type Directions struct {
	Active      bool                `json:"active"`
	Origin      *geolookup.Location `json:"origin"`
	Destination *geolookup.Location `json:"destination"`
}

// Endpoint picks a directions endpoint from the latest search candidates or
// the current device location.
type Endpoint struct {
	Candidate  *int `json:"candidate,omitempty"`
	UseCurrent bool `json:"use_current,omitempty"`
}

// Snapshot is a consistent view of the router and controller state.
type Snapshot struct {
	Map              mapsync.MapState     `json:"map"`
	Directions       Directions           `json:"directions"`
	SearchQuery      string               `json:"search_query"`
	SearchGeneration uint64               `json:"search_generation"`
	Candidates       []geolookup.Location `json:"candidates"`
}

// MapClick resolves the clicked point and selects it. With directions open
// and an origin set, the clicked place also becomes the destination.
func (r *Router) MapClick(ctx context.Context, p types.Point) error {
	if !p.Valid() {
		return ErrInvalidPoint
	}
	return r.call(ctx, func() error {
		go func(loopCtx context.Context) {
			loc := r.deps.Lookup.ReverseGeocode(loopCtx, p)
			r.post(func() { r.commitClick(loc) })
		}(r.ctx)
		return nil
	})
}

func (r *Router) commitClick(loc geolookup.Location) {
	if r.directions.Active && r.directions.Origin != nil {
		r.directions.Destination = &loc
	}
	r.render(r.controller.SelectLocation(loc))
}

// UseCurrentLocation asks for a device fix, names it and commits it as the
// current location. Failures are surfaced as notices without touching state.
func (r *Router) UseCurrentLocation(ctx context.Context) error {
	return r.call(ctx, func() error {
		go func(loopCtx context.Context) {
			fix, err := r.deps.Position.Current(loopCtx)
			if err != nil {
				if loopCtx.Err() != nil {
					return
				}
				r.log.Info("current location unavailable", zap.Error(err))
				r.post(func() { r.notify(noticeFor(err)) })
				return
			}
			loc := r.deps.Lookup.ReverseGeocode(loopCtx, fix.Point)
			r.post(func() { r.render(r.controller.FoundCurrentLocation(loc)) })
		}(r.ctx)
		return nil
	})
}

// SearchInput restarts the debounce window for text. Only the newest
// generation's results are ever committed; blank text clears candidates at once.
func (r *Router) SearchInput(ctx context.Context, text string) error {
	return r.call(ctx, func() error {
		r.searchGen++
		gen := r.searchGen
		r.searchQuery = text
		if r.debounce != nil {
			r.debounce.Stop()
		}

		if strings.TrimSpace(text) == "" {
			r.candidates = nil
			r.deps.Sink.Candidates(text, gen, []geolookup.Location{})
			return nil
		}
		r.debounce = time.AfterFunc(r.cfg.SearchDebounce, func() {
			r.post(func() { r.startSearch(gen, text) })
		})
		return nil
	})
}

func (r *Router) startSearch(gen uint64, text string) {
	if gen != r.searchGen {
		return
	}
	go func(loopCtx context.Context) {
		locs := r.deps.Lookup.SearchCandidates(loopCtx, text, r.cfg.SearchLimit)
		r.post(func() { r.commitSearch(gen, text, locs) })
	}(r.ctx)
}

func (r *Router) commitSearch(gen uint64, text string, locs []geolookup.Location) {
	if gen != r.searchGen {
		metrics.StaleSearchResults.Inc()
		r.log.Debug("discarding stale search results",
			zap.String("query", text), zap.Uint64("generation", gen), zap.Uint64("latest", r.searchGen))
		return
	}
	r.candidates = locs
	r.deps.Sink.Candidates(text, gen, locs)
}

// SelectCandidate selects one of the latest search candidates by index.
func (r *Router) SelectCandidate(ctx context.Context, index int) error {
	return r.call(ctx, func() error {
		loc, err := r.candidate(index)
		if err != nil {
			return err
		}
		r.render(r.controller.SelectLocation(loc))
		if r.deps.History != nil {
			go func(loopCtx context.Context) {
				if err := r.deps.History.Record(loopCtx, loc); err != nil {
					r.log.Warn("record recent search failed", zap.Error(err))
				}
			}(r.ctx)
		}
		return nil
	})
}

// StepClick jumps the viewport to the first coordinate of a route step.
func (r *Router) StepClick(ctx context.Context, stepID types.ID) error {
	return r.call(ctx, func() error {
		route := r.controller.State().Route
		if route == nil {
			return ErrNoActiveRoute
		}
		step, ok := route.Step(stepID)
		if !ok {
			return ErrUnknownStep
		}
		r.render(r.controller.FocusCoordinates(step.Coordinates[0]))
		return nil
	})
}

// OpenDirections starts the directions flow, pre-filling the destination with
// the selected location and the origin with the current location.
func (r *Router) OpenDirections(ctx context.Context) error {
	return r.call(ctx, func() error {
		if r.directions.Active {
			return nil
		}
		st := r.controller.State()
		r.directions = Directions{Active: true, Origin: st.CurrentLocation, Destination: st.SelectedLocation}
		return nil
	})
}

// CloseDirections ends the flow and removes any drawn route.
func (r *Router) CloseDirections(ctx context.Context) error {
	return r.call(ctx, func() error {
		r.directions = Directions{}
		if r.controller.State().Route != nil {
			r.render(r.controller.SetRoute(nil))
		}
		return nil
	})
}

func (r *Router) SetOrigin(ctx context.Context, e Endpoint) error {
	return r.call(ctx, func() error {
		loc, err := r.resolveEndpoint(e)
		if err != nil {
			return err
		}
		r.directions.Active = true
		r.directions.Origin = &loc
		r.dropStaleRoute()
		return nil
	})
}

func (r *Router) SetDestination(ctx context.Context, e Endpoint) error {
	return r.call(ctx, func() error {
		loc, err := r.resolveEndpoint(e)
		if err != nil {
			return err
		}
		r.directions.Active = true
		r.directions.Destination = &loc
		r.dropStaleRoute()
		return nil
	})
}

// RequestDirections calculates a route between the chosen endpoints. The
// outcome arrives asynchronously as effects or a notice.
func (r *Router) RequestDirections(ctx context.Context) error {
	return r.call(ctx, func() error {
		origin, destination := r.directions.Origin, r.directions.Destination
		if origin == nil || destination == nil {
			r.notify(newNotice(NoticeDirectionsIncomplete))
			return ErrEndpointsMissing
		}
		o, d := *origin, *destination
		go func(loopCtx context.Context) {
			route, err := r.deps.Routes.Calculate(loopCtx, o, d)
			r.post(func() { r.commitRoute(o, d, route, err) })
		}(r.ctx)
		return nil
	})
}

func (r *Router) commitRoute(o, d geolookup.Location, route *routing.Route, err error) {
	if !r.endpointsAre(o, d) {
		r.log.Debug("discarding route for replaced endpoints",
			zap.String("origin", string(o.ID)), zap.String("destination", string(d.ID)))
		return
	}
	if err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.log.Info("directions failed", zap.Error(err))
		r.notify(noticeFor(err))
		r.render(r.controller.SetRoute(nil))
		return
	}
	r.render(r.controller.SetRoute(route))
}

// Reset clears the map, the directions flow and the candidate list.
func (r *Router) Reset(ctx context.Context) error {
	return r.call(ctx, func() error {
		r.searchGen++
		if r.debounce != nil {
			r.debounce.Stop()
		}
		r.searchQuery = ""
		r.candidates = nil
		r.directions = Directions{}
		r.render(r.controller.Reset())
		return nil
	})
}

// Snapshot reads the state from inside the loop.
func (r *Router) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.call(ctx, func() error {
		snap = Snapshot{
			Map:              r.controller.State(),
			Directions:       r.directions,
			SearchQuery:      r.searchQuery,
			SearchGeneration: r.searchGen,
			Candidates:       append([]geolookup.Location(nil), r.candidates...),
		}
		return nil
	})
	return snap, err
}

func (r *Router) candidate(index int) (geolookup.Location, error) {
	if index < 0 || index >= len(r.candidates) {
		return geolookup.Location{}, ErrUnknownCandidate
	}
	return r.candidates[index], nil
}

func (r *Router) resolveEndpoint(e Endpoint) (geolookup.Location, error) {
	switch {
	case e.UseCurrent:
		cur := r.controller.State().CurrentLocation
		if cur == nil {
			return geolookup.Location{}, ErrNoCurrentLocation
		}
		return *cur, nil
	case e.Candidate != nil:
		return r.candidate(*e.Candidate)
	}
	return geolookup.Location{}, ErrNoEndpointChoice
}

// dropStaleRoute clears a route whose endpoints no longer match the flow.
func (r *Router) dropStaleRoute() {
	route := r.controller.State().Route
	if route == nil {
		return
	}
	if !r.endpointsAre(route.Origin, route.Destination) {
		r.render(r.controller.SetRoute(nil))
	}
}

func (r *Router) endpointsAre(o, d geolookup.Location) bool {
	return r.directions.Origin != nil && r.directions.Destination != nil &&
		r.directions.Origin.ID == o.ID && r.directions.Destination.ID == d.ID
}
