package maps

import (
	"errors"
	"testing"
	"time"

	gmaps "googlemaps.github.io/maps"
)

func TestDirectionsFromGoogle(t *testing.T) {
	overview := gmaps.Encode([]gmaps.LatLng{{Lat: 40.7, Lng: -74.0}, {Lat: 40.75, Lng: -73.95}, {Lat: 40.8, Lng: -73.9}})
	route := gmaps.Route{
		OverviewPolyline: gmaps.Polyline{Points: overview},
		Legs: []*gmaps.Leg{{
			Distance: gmaps.Distance{Meters: 15000},
			Duration: 20 * time.Minute,
			Steps: []*gmaps.Step{
				{
					HTMLInstructions: "Head <b>north</b>",
					Distance:         gmaps.Distance{Meters: 6000},
					Duration:         8 * time.Minute,
					Polyline:         gmaps.Polyline{Points: gmaps.Encode([]gmaps.LatLng{{Lat: 40.7, Lng: -74.0}, {Lat: 40.75, Lng: -73.95}})},
				},
				{
					HTMLInstructions: "Turn right",
					Distance:         gmaps.Distance{Meters: 9000},
					Duration:         12 * time.Minute,
					StartLocation:    gmaps.LatLng{Lat: 40.75, Lng: -73.95},
					EndLocation:      gmaps.LatLng{Lat: 40.8, Lng: -73.9},
				},
			},
		}},
	}

	d, err := directionsFromGoogle(route)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DistanceMeters != 15000 || d.DurationSeconds != 1200 {
		t.Errorf("unexpected totals %f / %f", d.DistanceMeters, d.DurationSeconds)
	}
	if len(d.Geometry) != 3 {
		t.Fatalf("expected 3 overview points, got %d", len(d.Geometry))
	}
	if len(d.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(d.Steps))
	}
	if d.Steps[0].Instruction != "Head <b>north</b>" {
		t.Errorf("instruction must be passed through verbatim, got %q", d.Steps[0].Instruction)
	}
	if len(d.Steps[1].Geometry) != 2 {
		t.Errorf("step without polyline should fall back to start/end, got %v", d.Steps[1].Geometry)
	}
}

func TestClassifyGoogleError(t *testing.T) {
	if err := classifyGoogleError(errors.New("maps: ZERO_RESULTS - ")); !errors.Is(err, ErrNoRoute) {
		t.Errorf("ZERO_RESULTS should map to ErrNoRoute, got %v", err)
	}
	if err := classifyGoogleError(errors.New("maps: NOT_FOUND - ")); !errors.Is(err, ErrNoRoute) {
		t.Errorf("NOT_FOUND should map to ErrNoRoute, got %v", err)
	}
	if err := classifyGoogleError(errors.New("dial tcp: timeout")); !errors.Is(err, ErrUnavailable) {
		t.Errorf("transport errors should map to ErrUnavailable, got %v", err)
	}
}
