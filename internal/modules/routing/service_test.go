// README: Route calculator tests covering endpoint pinning, step ids, fallback policy and caching.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"wayfinder/internal/geo"
	"wayfinder/internal/maps"
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/types"
)

type fakeRouter struct {
	mu      sync.Mutex
	calls   int
	result  *maps.Directions
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRouter) Route(ctx context.Context, _, _ types.Point) (*maps.Directions, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", maps.ErrUnavailable, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	d := *f.result
	return &d, nil
}

func (f *fakeRouter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var (
	origin      = geolookup.Location{ID: "o", Name: "Origin", Coordinates: types.Point{Lng: -74.0, Lat: 40.7}}
	destination = geolookup.Location{ID: "d", Name: "Destination", Coordinates: types.Point{Lng: -73.9, Lat: 40.8}}
)

func sampleDirections() *maps.Directions {
	return &maps.Directions{
		DistanceMeters:  15234.5,
		DurationSeconds: 1320,
		Geometry: []types.Point{
			{Lng: -74.0001, Lat: 40.7001},
			{Lng: -73.95, Lat: 40.75},
			{Lng: -73.9001, Lat: 40.8001},
		},
		Steps: []maps.Step{
			{Instruction: "Head out on Broadway", DistanceMeters: 5000, DurationSeconds: 400,
				Geometry: []types.Point{{Lng: -74.0001, Lat: 40.7001}, {Lng: -73.95, Lat: 40.75}}},
			{Instruction: "Turn left onto 5th Ave", DistanceMeters: 10234.5, DurationSeconds: 920,
				Geometry: []types.Point{{Lng: -73.95, Lat: 40.75}, {Lng: -73.9001, Lat: 40.8001}}},
			{Instruction: "Arrive at your destination"},
		},
	}
}

func newCalc(r maps.Router, cache *Cache, fallback bool) *Calculator {
	return NewCalculator(r, cache, Config{Fallback: fallback}, zap.NewNop())
}

func assertEndpoints(t *testing.T, r *Route) {
	t.Helper()
	if len(r.Geometry) < 2 {
		t.Fatalf("geometry must have at least 2 points, got %d", len(r.Geometry))
	}
	if r.Geometry[0] != r.Origin.Coordinates {
		t.Errorf("geometry starts at %v, want %v", r.Geometry[0], r.Origin.Coordinates)
	}
	if last := r.Geometry[len(r.Geometry)-1]; last != r.Destination.Coordinates {
		t.Errorf("geometry ends at %v, want %v", last, r.Destination.Coordinates)
	}
	if len(r.Steps) == 0 {
		t.Fatal("steps must not be empty")
	}
	for i, s := range r.Steps {
		if s.ID != stepID(i) {
			t.Errorf("step %d has id %s", i, s.ID)
		}
		if len(s.Coordinates) == 0 {
			t.Errorf("step %d has no coordinates", i)
		}
	}
}

func TestCalculate_PinsEndpointsAndNumbersSteps(t *testing.T) {
	c := newCalc(&fakeRouter{result: sampleDirections()}, nil, false)

	r, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEndpoints(t, r)
	if len(r.Geometry) != 5 {
		t.Errorf("expected provider geometry plus both endpoints, got %d points", len(r.Geometry))
	}
	if r.DistanceMeters != 15234.5 || r.DurationSeconds != 1320 {
		t.Errorf("totals must be provider-supplied, got %f / %f", r.DistanceMeters, r.DurationSeconds)
	}
	if r.Steps[1].Instruction != "Turn left onto 5th Ave" {
		t.Errorf("instruction changed: %q", r.Steps[1].Instruction)
	}
	// The arrive step had no geometry and inherits the previous step's end.
	if got := r.Steps[2].Coordinates; len(got) != 1 || got[0] != (types.Point{Lng: -73.9001, Lat: 40.8001}) {
		t.Errorf("unexpected arrive step coordinates %v", got)
	}
	if r.Fallback {
		t.Error("provider routes are not fallbacks")
	}
}

func TestCalculate_ExactEndpointsNotDuplicated(t *testing.T) {
	d := sampleDirections()
	d.Geometry = []types.Point{origin.Coordinates, {Lng: -73.95, Lat: 40.75}, destination.Coordinates}
	c := newCalc(&fakeRouter{result: d}, nil, false)

	r, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Geometry) != 3 {
		t.Errorf("expected 3 points, got %d", len(r.Geometry))
	}
}

func TestCalculate_NoStepsSynthesizesOne(t *testing.T) {
	d := &maps.Directions{DistanceMeters: 100, DurationSeconds: 20}
	c := newCalc(&fakeRouter{result: d}, nil, false)

	r, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEndpoints(t, r)
	if len(r.Steps) != 1 || r.Steps[0].DistanceMeters != 100 {
		t.Errorf("unexpected steps %+v", r.Steps)
	}
}

func TestCalculate_MissingDistanceMeasuredAlongGeometry(t *testing.T) {
	d := &maps.Directions{DurationSeconds: 600}
	c := newCalc(&fakeRouter{result: d}, nil, false)

	r, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := geo.DistanceMeters(origin.Coordinates, destination.Coordinates)
	if math.Abs(r.DistanceMeters-want) > 1 {
		t.Errorf("distance = %f, want about %f", r.DistanceMeters, want)
	}
	if r.Steps[0].DistanceMeters != r.DistanceMeters || r.DurationSeconds != 600 {
		t.Errorf("unexpected synthesized step %+v", r.Steps[0])
	}
}

func TestCalculate_ErrorPolicy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback bool
		want     error
	}{
		{"no route without fallback", maps.ErrNoRoute, false, ErrNoRouteFound},
		{"no route is never papered over", maps.ErrNoRoute, true, ErrNoRouteFound},
		{"unavailable without fallback", maps.ErrUnavailable, false, ErrProviderUnavailable},
		{"unknown error without fallback", errors.New("boom"), false, ErrProviderUnavailable},
		{"unavailable with fallback", maps.ErrUnavailable, true, nil},
		{"unknown error with fallback", errors.New("boom"), true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCalc(&fakeRouter{err: tt.err}, nil, tt.fallback)
			r, err := c.Calculate(context.Background(), origin, destination)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
				if r != nil {
					t.Error("no route should be returned on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("fallback must not fail, got %v", err)
			}
			if !r.Fallback {
				t.Error("expected a fallback route")
			}
		})
	}
}

func TestCalculate_FallbackShape(t *testing.T) {
	c := newCalc(&fakeRouter{err: maps.ErrUnavailable}, nil, true)

	r, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertEndpoints(t, r)
	if len(r.Steps) != 1 || r.Steps[0].Instruction != "Head towards destination" {
		t.Errorf("expected a single synthetic step, got %+v", r.Steps)
	}
	// (-74,40.7) to (-73.9,40.8) is roughly 14 km.
	if r.DistanceMeters < 13000 || r.DistanceMeters > 15000 {
		t.Errorf("unexpected straight-line distance %f", r.DistanceMeters)
	}
	wantDuration := math.Round(r.DistanceMeters / (DefaultFallbackSpeedKmh * 1000 / 3600))
	if r.DurationSeconds != wantDuration {
		t.Errorf("duration = %f, want %f", r.DurationSeconds, wantDuration)
	}

	again, _ := c.Calculate(context.Background(), origin, destination)
	if again.DistanceMeters != r.DistanceMeters || len(again.Geometry) != len(r.Geometry) {
		t.Error("fallback must be deterministic")
	}
}

func TestCalculate_InvalidEndpoint(t *testing.T) {
	router := &fakeRouter{result: sampleDirections()}
	c := newCalc(router, nil, true)
	bad := geolookup.Location{ID: "x", Coordinates: types.Point{Lng: 200, Lat: 0}}

	if _, err := c.Calculate(context.Background(), bad, destination); !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
	if router.callCount() != 0 {
		t.Error("provider must not be called for invalid endpoints")
	}
}

func TestCalculate_CacheServesRepeats(t *testing.T) {
	router := &fakeRouter{result: sampleDirections()}
	c := newCalc(router, NewCache(16, time.Minute), false)

	a, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.Calculate(context.Background(), origin, destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if router.callCount() != 1 {
		t.Errorf("expected one provider call, got %d", router.callCount())
	}
	if a.DistanceMeters != b.DistanceMeters || a.DurationSeconds != b.DurationSeconds || len(a.Geometry) != len(b.Geometry) {
		t.Error("repeated calculations must agree")
	}
	for i := range a.Geometry {
		if a.Geometry[i] != b.Geometry[i] {
			t.Fatalf("geometry differs at %d", i)
		}
	}
	if a.ID == b.ID {
		t.Error("each calculation gets its own route id")
	}
}

func TestCalculate_FallbackNotCached(t *testing.T) {
	router := &fakeRouter{err: maps.ErrUnavailable}
	cache := NewCache(16, time.Minute)
	c := newCalc(router, cache, true)

	_, _ = c.Calculate(context.Background(), origin, destination)
	_, _ = c.Calculate(context.Background(), origin, destination)
	if router.callCount() != 2 {
		t.Errorf("expected provider to be retried, got %d calls", router.callCount())
	}
	if cache.lru.Len() != 0 {
		t.Errorf("fallback routes must not be cached, cache holds %d", cache.lru.Len())
	}
}

func TestCalculate_ConcurrentCallsShareProvider(t *testing.T) {
	router := &fakeRouter{
		result:  sampleDirections(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	c := newCalc(router, nil, false)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	call := func() {
		defer wg.Done()
		_, err := c.Calculate(context.Background(), origin, destination)
		errs <- err
	}

	wg.Add(1)
	go call()
	<-router.entered

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go call()
	}
	time.Sleep(50 * time.Millisecond)
	close(router.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if router.callCount() != 1 {
		t.Errorf("expected a single shared provider call, got %d", router.callCount())
	}
}

func TestCalculate_SharedCallSurvivesFirstCallerCancel(t *testing.T) {
	router := &fakeRouter{
		result:  sampleDirections(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	c := newCalc(router, nil, true)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Calculate(firstCtx, origin, destination)
		firstErr <- err
	}()
	<-router.entered

	type result struct {
		route *Route
		err   error
	}
	second := make(chan result, 1)
	go func() {
		r, err := c.Calculate(context.Background(), origin, destination)
		second <- result{r, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared call")
	}

	close(router.release)
	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("second caller: unexpected error %v", res.err)
		}
		if res.route.Fallback {
			t.Fatal("second caller got a fallback route while the provider was healthy")
		}
		if res.route.DistanceMeters != sampleDirections().DistanceMeters {
			t.Errorf("second caller distance = %f", res.route.DistanceMeters)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never received the shared result")
	}
	if router.callCount() != 1 {
		t.Errorf("expected one provider call, got %d", router.callCount())
	}
}

func TestCalculate_CancelledCallerGetsNoFallback(t *testing.T) {
	router := &fakeRouter{
		result:  sampleDirections(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	defer close(router.release)
	c := newCalc(router, nil, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		r, err := c.Calculate(ctx, origin, destination)
		if r != nil {
			err = fmt.Errorf("unexpected route %+v", r)
		}
		done <- err
	}()
	<-router.entered
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
