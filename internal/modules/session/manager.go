// README: Session manager owns live map sessions and reaps idle ones on a ticker.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wayfinder/internal/metrics"
	"wayfinder/internal/modules/history"
	"wayfinder/internal/modules/interaction"
	"wayfinder/internal/modules/mapsync"
	"wayfinder/internal/modules/position"
	"wayfinder/internal/types"
)

var ErrNotFound = errors.New("session not found")

const (
	DefaultIdleTTL      = 30 * time.Minute
	DefaultReapInterval = time.Minute
)

type Config struct {
	IdleTTL      time.Duration
	ReapInterval time.Duration
	Interaction  interaction.Config
	Position     position.Config
}

type Session struct {
	ID        types.ID
	CreatedAt time.Time
	Router    *interaction.Router
	Tracker   *position.Tracker
	Outbox    *Outbox

	cancel   context.CancelFunc
	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[types.ID]*Session

	lookup  interaction.Lookup
	routes  interaction.RouteCalculator
	history *history.Service
	cfg     Config
	log     *zap.Logger
	now     func() time.Time
}

// NewManager builds a manager. hist may be nil to disable recent searches.
func NewManager(lookup interaction.Lookup, routes interaction.RouteCalculator, hist *history.Service, cfg Config, log *zap.Logger) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultReapInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[types.ID]*Session),
		lookup:   lookup,
		routes:   routes,
		history:  hist,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a session with its own event loop.
func (m *Manager) Create() *Session {
	id := types.ID(uuid.NewString())
	outbox := NewOutbox()
	tracker := position.NewTracker(m.cfg.Position, outbox.RequestPosition)

	deps := interaction.Deps{
		Lookup:   m.lookup,
		Routes:   m.routes,
		Position: tracker,
		Sink:     outbox,
	}
	if m.history != nil {
		deps.History = m.history.ForSession(id)
	}
	router := interaction.NewRouter(mapsync.NewController(), deps, m.cfg.Interaction,
		m.log.With(zap.String("session_id", string(id))))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		CreatedAt: m.now().UTC(),
		Router:    router,
		Tracker:   tracker,
		Outbox:    outbox,
		cancel:    cancel,
	}
	s.touch(m.now())
	go router.Run(ctx)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()
	m.log.Info("session created", zap.String("session_id", string(id)))
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id types.ID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Delete(ctx context.Context, id types.ID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.stop(ctx, s)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunReaper stops sessions idle longer than IdleTTL until ctx is done.
func (m *Manager) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.reap(ctx); n > 0 {
				m.log.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) reap(ctx context.Context) int {
	cutoff := m.now().Add(-m.cfg.IdleTTL)

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		m.stop(ctx, s)
	}
	return len(idle)
}

// Close stops every session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.stop(ctx, s)
	}
}

func (m *Manager) stop(ctx context.Context, s *Session) {
	s.cancel()
	<-s.Router.Done()
	metrics.ActiveSessions.Dec()
	if m.history != nil {
		m.history.Forget(ctx, s.ID)
	}
	m.log.Info("session closed", zap.String("session_id", string(s.ID)))
}
