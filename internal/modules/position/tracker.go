// README: Position tracker caches client-reported device fixes and waits for fresh ones with a deadline.
package position

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wayfinder/internal/types"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrTimeout             = errors.New("position request timed out")
	ErrUnknownFailure      = errors.New("unknown position failure code")
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxAge  = 10 * time.Minute
)

type Fix struct {
	Point      types.Point `json:"point"`
	AccuracyM  float64     `json:"accuracy_m,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}

type Config struct {
	// Timeout bounds how long Current waits for a new fix.
	Timeout time.Duration
	// MaxAge is how old a cached fix may be and still be served.
	MaxAge time.Duration
}

type result struct {
	fix Fix
	err error
}

type Tracker struct {
	mu        sync.Mutex
	last      *Fix
	waiters   []chan result
	cfg       Config
	onRequest func()
	now       func() time.Time
}

// NewTracker builds a tracker. onRequest, if set, is called whenever Current
// has to wait for the client to report a position.
func NewTracker(cfg Config, onRequest func()) *Tracker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Tracker{cfg: cfg, onRequest: onRequest, now: time.Now}
}

// Report records a fix and hands it to every pending Current call.
func (t *Tracker) Report(p types.Point, accuracyM float64) Fix {
	t.mu.Lock()
	fix := Fix{Point: p, AccuracyM: accuracyM, RecordedAt: t.now()}
	t.last = &fix
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()

	for _, w := range waiters {
		w <- result{fix: fix}
	}
	return fix
}

// ReportFailure fails every pending Current call with err. The cached fix is kept.
func (t *Tracker) ReportFailure(err error) {
	t.mu.Lock()
	waiters := t.waiters
	t.waiters = nil
	t.mu.Unlock()

	for _, w := range waiters {
		w <- result{err: err}
	}
}

// Current returns a cached fix younger than MaxAge, otherwise waits for the
// next report up to Timeout.
func (t *Tracker) Current(ctx context.Context) (Fix, error) {
	t.mu.Lock()
	if t.last != nil && t.now().Sub(t.last.RecordedAt) < t.cfg.MaxAge {
		fix := *t.last
		t.mu.Unlock()
		return fix, nil
	}
	ch := make(chan result, 1)
	t.waiters = append(t.waiters, ch)
	t.mu.Unlock()

	if t.onRequest != nil {
		t.onRequest()
	}

	timer := time.NewTimer(t.cfg.Timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.fix, r.err
	case <-timer.C:
		t.drop(ch)
		return Fix{}, ErrTimeout
	case <-ctx.Done():
		t.drop(ch)
		return Fix{}, ctx.Err()
	}
}

// Last returns the most recent fix regardless of age.
func (t *Tracker) Last() (Fix, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return Fix{}, false
	}
	return *t.last, true
}

func (t *Tracker) drop(ch chan result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range t.waiters {
		if w == ch {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}

// ParseFailure maps a client geolocation failure code to its error. It accepts
// names in any case or separator style ("PermissionDenied", "permission_denied")
// and the numeric browser codes 1, 2 and 3. Other codes yield ErrUnknownFailure.
func ParseFailure(code string) error {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(code))
	switch norm {
	case "permissiondenied", "1":
		return ErrPermissionDenied
	case "positionunavailable", "2":
		return ErrPositionUnavailable
	case "timeout", "3":
		return ErrTimeout
	}
	return fmt.Errorf("%w: %q", ErrUnknownFailure, code)
}
