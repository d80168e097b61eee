// README: Map sync controller commits state transitions and returns the render effects they imply.
package mapsync

import (
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/routing"
	"wayfinder/internal/types"
)

// Controller owns a MapState. It is not safe for concurrent use; callers
// drive it from a single event loop.
type Controller struct {
	state MapState
}

func NewController() *Controller {
	return &Controller{}
}

// State returns a copy of the current state.
func (c *Controller) State() MapState {
	return c.state
}

// SelectLocation makes loc the selected location. The active route survives
// only when loc is its destination.
func (c *Controller) SelectLocation(loc geolookup.Location) []Effect {
	c.state.SelectedLocation = &loc

	effects := []Effect{clearMarkers(), setMarker(RoleSelected, loc)}
	// clearMarkers empties every slot, so the current-position marker is restored.
	if cur := c.state.CurrentLocation; cur != nil {
		effects = append(effects, setMarker(RoleCurrent, *cur))
	}
	if r := c.state.Route; r != nil && r.Destination.ID != loc.ID {
		c.state.Route = nil
		effects = append(effects, clearPolyline())
	}
	return append(effects, centerViewport(loc.Coordinates, SelectZoom))
}

// FoundCurrentLocation records a device fix. Only the first fix recenters.
func (c *Controller) FoundCurrentLocation(loc geolookup.Location) []Effect {
	first := c.state.CurrentLocation == nil
	c.state.CurrentLocation = &loc

	effects := []Effect{setMarker(RoleCurrent, loc)}
	if first {
		effects = append(effects, centerViewport(loc.Coordinates, SelectZoom))
	}
	return effects
}

// SetRoute replaces the route wholesale. A nil route clears the polyline.
func (c *Controller) SetRoute(r *routing.Route) []Effect {
	c.state.Route = r
	if r == nil {
		return []Effect{clearPolyline()}
	}
	return []Effect{drawPolyline(r.Geometry), fitViewport(r.Geometry)}
}

// FocusCoordinates issues a fresh jump-to command, even for the same point.
// The target stays pending until Acknowledge.
func (c *Controller) FocusCoordinates(p types.Point) []Effect {
	c.state.FocusTarget = &p
	return []Effect{centerViewport(p, FocusZoom)}
}

// Acknowledge clears the pending focus target once the surface has applied it.
func (c *Controller) Acknowledge() {
	c.state.FocusTarget = nil
}

// Reset returns to the empty state and clears the surface.
func (c *Controller) Reset() []Effect {
	c.state = MapState{}
	return []Effect{clearMarkers(), clearPolyline()}
}
