// README: Surface is a reference renderer that replays effects onto role-keyed slots.
package mapsync

import (
	"sync"

	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/types"
)

// Snapshot is the picture a Surface currently shows.
type Snapshot struct {
	Markers  map[Role]geolookup.Location `json:"markers"`
	Polyline []types.Point               `json:"polyline,omitempty"`
	Center   *types.Point                `json:"center,omitempty"`
	Zoom     int                         `json:"zoom,omitempty"`
	Bounds   *types.Bounds               `json:"bounds,omitempty"`
	Applied  int                         `json:"applied"`
}

type Surface struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewSurface() *Surface {
	return &Surface{snap: Snapshot{Markers: map[Role]geolookup.Location{}}}
}

func (s *Surface) Apply(effects ...Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range effects {
		switch e.Kind {
		case EffectSetMarker:
			if e.Location != nil {
				s.snap.Markers[e.Role] = *e.Location
			}
		case EffectClearMarkers:
			s.snap.Markers = map[Role]geolookup.Location{}
		case EffectDrawPolyline:
			s.snap.Polyline = append([]types.Point(nil), e.Points...)
		case EffectClearPolyline:
			s.snap.Polyline = nil
		case EffectCenterViewport:
			s.snap.Center = e.Center
			s.snap.Zoom = e.Zoom
			s.snap.Bounds = nil
		case EffectFitViewport:
			s.snap.Bounds = e.Bounds
			s.snap.Center = nil
			s.snap.Zoom = 0
		}
		s.snap.Applied++
	}
}

// Snapshot returns a copy that is safe to keep after further Apply calls.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.snap
	out.Markers = make(map[Role]geolookup.Location, len(s.snap.Markers))
	for k, v := range s.snap.Markers {
		out.Markers[k] = v
	}
	out.Polyline = append([]types.Point(nil), s.snap.Polyline...)
	return out
}
