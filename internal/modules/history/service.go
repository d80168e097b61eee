// README: History service records selected search candidates per session.
package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/types"
)

type Repository interface {
	Append(ctx context.Context, e Entry, keep int) error
	Recent(ctx context.Context, sessionID types.ID, limit int) ([]Entry, error)
	DeleteSession(ctx context.Context, sessionID types.ID) error
}

type Service struct {
	repo Repository
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log, now: time.Now}
}

func (s *Service) Record(ctx context.Context, sessionID types.ID, loc geolookup.Location) error {
	return s.repo.Append(ctx, Entry{
		SessionID:   sessionID,
		LocationID:  loc.ID,
		Name:        loc.Name,
		Address:     loc.Address,
		Coordinates: loc.Coordinates,
		SearchedAt:  s.now().UTC(),
	}, MaxRecent)
}

func (s *Service) Recent(ctx context.Context, sessionID types.ID) ([]Entry, error) {
	return s.repo.Recent(ctx, sessionID, MaxRecent)
}

// Forget drops a session's entries. Errors are logged.
func (s *Service) Forget(ctx context.Context, sessionID types.ID) {
	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		s.log.Warn("forget recent searches failed", zap.String("session_id", string(sessionID)), zap.Error(err))
	}
}

// ForSession binds the service to one session for the interaction router.
func (s *Service) ForSession(sessionID types.ID) *SessionRecorder {
	return &SessionRecorder{svc: s, sessionID: sessionID}
}

type SessionRecorder struct {
	svc       *Service
	sessionID types.ID
}

func (r *SessionRecorder) Record(ctx context.Context, loc geolookup.Location) error {
	return r.svc.Record(ctx, r.sessionID, loc)
}
