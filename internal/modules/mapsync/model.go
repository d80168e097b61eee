// README: Map state and the render effects the controller emits toward a map surface.
package mapsync

import (
	"wayfinder/internal/geo"
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/routing"
	"wayfinder/internal/types"
)

const (
	SelectZoom = 15
	FocusZoom  = 18
)

// Role keys a marker slot. Each role holds at most one marker.
type Role string

const (
	RoleSelected Role = "selected"
	RoleCurrent  Role = "current"
)

type EffectKind string

const (
	EffectSetMarker      EffectKind = "set_marker"
	EffectClearMarkers   EffectKind = "clear_markers"
	EffectDrawPolyline   EffectKind = "draw_polyline"
	EffectClearPolyline  EffectKind = "clear_polyline"
	EffectCenterViewport EffectKind = "center_viewport"
	EffectFitViewport    EffectKind = "fit_viewport"
)

// Effect is one map mutation. Only the fields relevant to Kind are set.
type Effect struct {
	Kind     EffectKind          `json:"kind"`
	Role     Role                `json:"role,omitempty"`
	Location *geolookup.Location `json:"location,omitempty"`
	Points   []types.Point       `json:"points,omitempty"`
	Center   *types.Point        `json:"center,omitempty"`
	Zoom     int                 `json:"zoom,omitempty"`
	Bounds   *types.Bounds       `json:"bounds,omitempty"`
}

// MapState is the single source of truth for what the map shows.
type MapState struct {
	SelectedLocation *geolookup.Location `json:"selected_location"`
	CurrentLocation  *geolookup.Location `json:"current_location"`
	Route            *routing.Route      `json:"route"`
	FocusTarget      *types.Point        `json:"focus_target"`
}

func setMarker(role Role, loc geolookup.Location) Effect {
	return Effect{Kind: EffectSetMarker, Role: role, Location: &loc}
}

func clearMarkers() Effect {
	return Effect{Kind: EffectClearMarkers}
}

func drawPolyline(points []types.Point) Effect {
	return Effect{Kind: EffectDrawPolyline, Points: points}
}

func clearPolyline() Effect {
	return Effect{Kind: EffectClearPolyline}
}

func centerViewport(p types.Point, zoom int) Effect {
	return Effect{Kind: EffectCenterViewport, Center: &p, Zoom: zoom}
}

func fitViewport(points []types.Point) Effect {
	b := geo.BoundsOf(points)
	return Effect{Kind: EffectFitViewport, Bounds: &b}
}
