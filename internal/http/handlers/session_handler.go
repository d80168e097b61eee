// README: Session handlers translate HTTP calls into interaction router events.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfinder/internal/modules/interaction"
	"wayfinder/internal/modules/mapsync"
	"wayfinder/internal/modules/position"
	"wayfinder/internal/modules/session"
	"wayfinder/internal/types"
)

type SessionHandler struct {
	sessions *session.Manager
}

func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type pointReq struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

func (r pointReq) point() (types.Point, bool) {
	if r.Lng == nil || r.Lat == nil {
		return types.Point{}, false
	}
	return types.Point{Lng: *r.Lng, Lat: *r.Lat}, true
}

type searchReq struct {
	Text string `json:"text"`
}

type stateResp struct {
	SessionID types.ID             `json:"session_id"`
	State     interaction.Snapshot `json:"state"`
	Surface   mapsync.Snapshot     `json:"surface"`
	// Position is the last reported fix, however old.
	Position *position.Fix `json:"position,omitempty"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	s := h.sessions.Create()
	writeJSON(c, http.StatusCreated, map[string]any{"id": s.ID, "created_at": s.CreatedAt})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), types.ID(id)); err != nil {
		writeSessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Click(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	var req pointReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := req.point()
	if !ok {
		writeError(c, http.StatusBadRequest, "lng and lat are required")
		return
	}
	if err := s.Router.MapClick(c.Request.Context(), p); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, accepted)
}

func (h *SessionHandler) Search(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	var req searchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.Router.SearchInput(c.Request.Context(), req.Text); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, accepted)
}

func (h *SessionHandler) SelectCandidate(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid candidate index")
		return
	}
	if err := s.Router.SelectCandidate(c.Request.Context(), index); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "selected"})
}

func (h *SessionHandler) Locate(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	if err := s.Router.UseCurrentLocation(c.Request.Context()); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, accepted)
}

func (h *SessionHandler) OpenDirections(c *gin.Context) {
	h.simple(c, (*interaction.Router).OpenDirections)
}

func (h *SessionHandler) CloseDirections(c *gin.Context) {
	h.simple(c, (*interaction.Router).CloseDirections)
}

func (h *SessionHandler) RequestDirections(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	if err := s.Router.RequestDirections(c.Request.Context()); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, accepted)
}

func (h *SessionHandler) SetOrigin(c *gin.Context) {
	h.endpoint(c, (*interaction.Router).SetOrigin)
}

func (h *SessionHandler) SetDestination(c *gin.Context) {
	h.endpoint(c, (*interaction.Router).SetDestination)
}

func (h *SessionHandler) FocusStep(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	if err := s.Router.StepClick(c.Request.Context(), types.ID(c.Param("stepID"))); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "focused"})
}

func (h *SessionHandler) Reset(c *gin.Context) {
	h.simple(c, (*interaction.Router).Reset)
}

func (h *SessionHandler) State(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	snap, err := s.Router.Snapshot(c.Request.Context())
	if err != nil {
		writeSessionError(c, err)
		return
	}
	resp := stateResp{SessionID: s.ID, State: snap, Surface: s.Outbox.Surface()}
	if fix, ok := s.Tracker.Last(); ok {
		resp.Position = &fix
	}
	writeJSON(c, http.StatusOK, resp)
}

// Outbox drains pending effects, notices and candidates.
func (h *SessionHandler) Outbox(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, s.Outbox.Drain())
}

func (h *SessionHandler) simple(c *gin.Context, fn func(*interaction.Router, context.Context) error) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	if err := fn(s.Router, c.Request.Context()); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *SessionHandler) endpoint(c *gin.Context, fn func(*interaction.Router, context.Context, interaction.Endpoint) error) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	var req interaction.Endpoint
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := fn(s.Router, c.Request.Context(), req); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}
