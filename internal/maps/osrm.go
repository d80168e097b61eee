package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

const defaultOSRMURL = "https://router.project-osrm.org"

// OSRM is a Router backed by the OSRM HTTP route service, driving profile only.
type OSRM struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

func NewOSRM(baseURL string, timeout time.Duration, log *zap.Logger) *OSRM {
	if baseURL == "" {
		baseURL = defaultOSRMURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OSRM{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmManeuver struct {
	Type     string `json:"type"`
	Modifier string `json:"modifier"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Name     string       `json:"name"`
	Geometry osrmGeometry `json:"geometry"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64      `json:"distance"`
		Duration float64      `json:"duration"`
		Geometry osrmGeometry `json:"geometry"`
		Legs     []struct {
			Steps []osrmStep `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

func (o *OSRM) Route(ctx context.Context, origin, destination types.Point) (_ *Directions, err error) {
	defer metrics.ObserveProvider("osrm", "route", time.Now(), &err)

	reqURL := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&steps=true",
		o.baseURL, origin.Lng, origin.Lat, destination.Lng, destination.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// OSRM reports NoRoute with a 400 status, so the body is decoded before the status is judged.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read osrm body: %v", ErrUnavailable, err)
	}
	var parsed osrmResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode osrm payload (status %d): %v", ErrUnavailable, resp.StatusCode, err)
	}

	switch parsed.Code {
	case "Ok":
	case "NoRoute", "NoSegment":
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, parsed.Message)
	default:
		return nil, fmt.Errorf("%w: osrm code %q status %d", ErrUnavailable, parsed.Code, resp.StatusCode)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: osrm returned no routes", ErrNoRoute)
	}

	r := parsed.Routes[0]
	geometry, err := pointsFromPairs(r.Geometry.Coordinates)
	if err != nil {
		return nil, err
	}
	d := &Directions{
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Geometry:        geometry,
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			pts, err := pointsFromPairs(s.Geometry.Coordinates)
			if err != nil {
				return nil, err
			}
			d.Steps = append(d.Steps, Step{
				Instruction:     osrmInstruction(s.Maneuver, s.Name),
				DistanceMeters:  s.Distance,
				DurationSeconds: s.Duration,
				Geometry:        pts,
			})
		}
	}
	return d, nil
}

func pointsFromPairs(pairs [][]float64) ([]types.Point, error) {
	pts := make([]types.Point, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: malformed coordinate %v", ErrUnavailable, pair)
		}
		pts = append(pts, types.Point{Lng: pair[0], Lat: pair[1]})
	}
	return pts, nil
}

var osrmVerbs = map[string]string{
	"turn":            "Turn",
	"new name":        "Continue",
	"continue":        "Continue",
	"merge":           "Merge",
	"fork":            "Keep",
	"end of road":     "Turn",
	"on ramp":         "Take the ramp",
	"off ramp":        "Take the exit",
	"roundabout":      "Enter the roundabout",
	"rotary":          "Enter the roundabout",
	"roundabout turn": "At the roundabout turn",
	"exit roundabout": "Exit the roundabout",
	"exit rotary":     "Exit the roundabout",
	"notification":    "Continue",
}

// osrmInstruction renders an OSRM maneuver as a short English instruction.
func osrmInstruction(m osrmManeuver, road string) string {
	switch m.Type {
	case "depart":
		if road != "" {
			return "Head out on " + road
		}
		return "Head out"
	case "arrive":
		return "Arrive at your destination"
	}

	verb, ok := osrmVerbs[m.Type]
	if !ok {
		verb = "Continue"
	}
	if m.Modifier != "" && !strings.Contains(verb, "roundabout") && !strings.HasPrefix(verb, "Take") {
		verb += " " + m.Modifier
	}
	if road != "" {
		verb += " onto " + road
	}
	return verb
}
