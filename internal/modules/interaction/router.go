// README: Interaction router runs a per-session event loop that turns user and map events into controller commits.
package interaction

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/mapsync"
	"wayfinder/internal/modules/position"
	"wayfinder/internal/modules/routing"
	"wayfinder/internal/types"
)

var (
	ErrClosed            = errors.New("interaction loop stopped")
	ErrUnknownCandidate  = errors.New("no such search candidate")
	ErrNoCurrentLocation = errors.New("current location not known yet")
	ErrNoActiveRoute     = errors.New("no active route")
	ErrUnknownStep       = errors.New("no such route step")
	ErrEndpointsMissing  = errors.New("origin and destination are required")
	ErrInvalidPoint      = errors.New("coordinates out of range")
	ErrNoEndpointChoice  = errors.New("endpoint needs a candidate or the current location")
	ErrHandlerFailed     = errors.New("interaction handler failed")
)

const (
	DefaultSearchDebounce = 300 * time.Millisecond
	eventBuffer           = 64
)

type Lookup interface {
	ReverseGeocode(ctx context.Context, p types.Point) geolookup.Location
	SearchCandidates(ctx context.Context, query string, limit int) []geolookup.Location
}

type RouteCalculator interface {
	Calculate(ctx context.Context, origin, destination geolookup.Location) (*routing.Route, error)
}

type PositionSource interface {
	Current(ctx context.Context) (position.Fix, error)
}

// Sink receives everything the router wants the client to see. Calls are made
// from the loop goroutine, in commit order.
type Sink interface {
	Render(effects []mapsync.Effect)
	Notify(n Notice)
	Candidates(query string, generation uint64, locs []geolookup.Location)
}

// History records search selections. Failures are logged only.
type History interface {
	Record(ctx context.Context, loc geolookup.Location) error
}

type Config struct {
	SearchDebounce time.Duration
	SearchLimit    int
}

type Deps struct {
	Lookup   Lookup
	Routes   RouteCalculator
	Position PositionSource
	Sink     Sink
	// History is optional.
	History History
}

// Router serializes every state change through one goroutine. Provider calls
// run on their own goroutines and post their results back to the loop.
type Router struct {
	events chan func()
	done   chan struct{}
	ctx    context.Context

	controller *mapsync.Controller
	deps       Deps
	cfg        Config
	log        *zap.Logger

	// Loop-owned.
	searchGen   uint64
	searchQuery string
	debounce    *time.Timer
	candidates  []geolookup.Location
	directions  Directions
}

func NewRouter(controller *mapsync.Controller, deps Deps, cfg Config, log *zap.Logger) *Router {
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = DefaultSearchDebounce
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = geolookup.DefaultLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		events:     make(chan func(), eventBuffer),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		controller: controller,
		deps:       deps,
		cfg:        cfg,
		log:        log,
	}
}

// Run dispatches events until ctx is cancelled. It must be called exactly once.
func (r *Router) Run(ctx context.Context) {
	r.ctx = ctx
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			if r.debounce != nil {
				r.debounce.Stop()
			}
			return
		case fn := <-r.events:
			r.dispatch(fn)
		}
	}
}

// Done is closed once Run has returned.
func (r *Router) Done() <-chan struct{} {
	return r.done
}

func (r *Router) dispatch(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("interaction handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
			r.deps.Sink.Notify(newNotice(NoticeError))
		}
	}()
	fn()
}

// post queues fn on the loop. It reports false once the loop has stopped.
func (r *Router) post(fn func()) bool {
	select {
	case r.events <- fn:
		return true
	case <-r.done:
		return false
	}
}

// call runs fn on the loop and waits for its result. A panic in fn is
// answered with ErrHandlerFailed and then handed on to dispatch.
func (r *Router) call(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	if !r.post(func() {
		defer func() {
			if rec := recover(); rec != nil {
				errc <- ErrHandlerFailed
				panic(rec)
			}
		}()
		errc <- fn()
	}) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

// render hands effects to the sink and acknowledges any focus command they carried.
func (r *Router) render(effects []mapsync.Effect) {
	if len(effects) == 0 {
		return
	}
	r.deps.Sink.Render(effects)
	if r.controller.State().FocusTarget != nil {
		r.controller.Acknowledge()
	}
}

func (r *Router) notify(n Notice) {
	r.deps.Sink.Notify(n)
}
