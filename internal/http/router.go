// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfinder/internal/http/handlers"
	"wayfinder/internal/metrics"
)

func registerRoutes(r *gin.Engine, s *Server) {
	sessionHandler := handlers.NewSessionHandler(s.sessions)
	positionHandler := handlers.NewPositionHandler(s.sessions)
	historyHandler := handlers.NewHistoryHandler(s.sessions, s.history, s.log)

	api := r.Group("/api/sessions")
	api.POST("", sessionHandler.Create)
	api.DELETE("/:id", sessionHandler.Delete)
	api.GET("/:id/state", sessionHandler.State)
	api.GET("/:id/outbox", sessionHandler.Outbox)
	api.POST("/:id/reset", sessionHandler.Reset)

	api.POST("/:id/click", sessionHandler.Click)
	api.POST("/:id/search", sessionHandler.Search)
	api.POST("/:id/candidates/:index/select", sessionHandler.SelectCandidate)
	api.POST("/:id/steps/:stepID/focus", sessionHandler.FocusStep)

	api.POST("/:id/locate", sessionHandler.Locate)
	api.PUT("/:id/position", positionHandler.Update)

	api.POST("/:id/directions", sessionHandler.RequestDirections)
	api.POST("/:id/directions/open", sessionHandler.OpenDirections)
	api.POST("/:id/directions/close", sessionHandler.CloseDirections)
	api.PUT("/:id/directions/origin", sessionHandler.SetOrigin)
	api.PUT("/:id/directions/destination", sessionHandler.SetDestination)

	api.GET("/:id/recent", historyHandler.Recent)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
