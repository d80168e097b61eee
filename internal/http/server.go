// README: API gateway; wires handlers onto a gin engine.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfinder/internal/http/middleware"
	"wayfinder/internal/modules/history"
	"wayfinder/internal/modules/session"
)

type ServerDeps struct {
	Sessions *session.Manager
	// History is nil when recent searches are disabled.
	History *history.Service
	Log     *zap.Logger
}

type Server struct {
	sessions *session.Manager
	history  *history.Service
	log      *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		sessions: deps.Sessions,
		history:  deps.History,
		log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(middleware.Recovery(s.log), middleware.Logging(s.log))
	registerRoutes(engine, s)
	return engine
}
