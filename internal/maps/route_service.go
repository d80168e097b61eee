package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	gmaps "googlemaps.github.io/maps"

	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

// RouteService is a Router backed by the Google Directions API.
type RouteService struct {
	client   *gmaps.Client
	language string
	region   string
}

// NewRouteService creates a new RouteService with the given API Key.
// Extra client options (base URL, HTTP client) are passed through.
func NewRouteService(apiKey, language, region string, opts ...gmaps.ClientOption) (*RouteService, error) {
	client, err := gmaps.NewClient(append([]gmaps.ClientOption{gmaps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, language: language, region: region}, nil
}

// Route returns driving directions for the first route Google suggests.
func (s *RouteService) Route(ctx context.Context, origin, destination types.Point) (_ *Directions, err error) {
	defer metrics.ObserveProvider("google", "route", time.Now(), &err)

	r := &gmaps.DirectionsRequest{
		Origin:      latLngString(origin),
		Destination: latLngString(destination),
		Mode:        gmaps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, fmt.Errorf("%w: google returned no routes", ErrNoRoute)
	}
	return directionsFromGoogle(routes[0])
}

func directionsFromGoogle(route gmaps.Route) (*Directions, error) {
	d := &Directions{}
	for _, leg := range route.Legs {
		d.DistanceMeters += float64(leg.Distance.Meters)
		d.DurationSeconds += leg.Duration.Seconds()
		for _, st := range leg.Steps {
			pts, err := decodePolyline(st.Polyline)
			if err != nil || len(pts) == 0 {
				pts = []types.Point{fromLatLng(st.StartLocation), fromLatLng(st.EndLocation)}
			}
			d.Steps = append(d.Steps, Step{
				Instruction:     st.HTMLInstructions,
				DistanceMeters:  float64(st.Distance.Meters),
				DurationSeconds: st.Duration.Seconds(),
				Geometry:        pts,
			})
		}
	}

	geometry, err := decodePolyline(route.OverviewPolyline)
	if err != nil {
		return nil, fmt.Errorf("%w: decode overview polyline: %v", ErrUnavailable, err)
	}
	if len(geometry) < 2 {
		for _, st := range d.Steps {
			geometry = append(geometry, st.Geometry...)
		}
	}
	d.Geometry = geometry
	return d, nil
}

func decodePolyline(p gmaps.Polyline) ([]types.Point, error) {
	if p.Points == "" {
		return nil, nil
	}
	lls, err := p.Decode()
	if err != nil {
		return nil, err
	}
	pts := make([]types.Point, len(lls))
	for i, ll := range lls {
		pts[i] = fromLatLng(ll)
	}
	return pts, nil
}

// classifyGoogleError maps Google status errors onto the provider taxonomy.
func classifyGoogleError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND") {
		return fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func latLngString(p types.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

func fromLatLng(ll gmaps.LatLng) types.Point {
	return types.Point{Lng: ll.Lng, Lat: ll.Lat}
}
