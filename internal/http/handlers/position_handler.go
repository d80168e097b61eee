// README: Position handler accepts device fixes or geolocation failures from the client.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wayfinder/internal/modules/position"
	"wayfinder/internal/modules/session"
	"wayfinder/internal/types"
)

type PositionHandler struct {
	sessions *session.Manager
}

func NewPositionHandler(sessions *session.Manager) *PositionHandler {
	return &PositionHandler{sessions: sessions}
}

type positionReq struct {
	Lng      *float64 `json:"lng"`
	Lat      *float64 `json:"lat"`
	Accuracy float64  `json:"accuracy"`
	// Error is a geolocation failure code, e.g. "permission_denied" or 1.
	Error any `json:"error"`
}

func (h *PositionHandler) Update(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Error != nil {
		err := position.ParseFailure(fmt.Sprint(req.Error))
		if errors.Is(err, position.ErrUnknownFailure) {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		s.Tracker.ReportFailure(err)
		writeJSON(c, http.StatusOK, map[string]any{"status": "reported", "error": err.Error()})
		return
	}

	if req.Lng == nil || req.Lat == nil {
		writeError(c, http.StatusBadRequest, "lng and lat, or error, are required")
		return
	}
	p := types.Point{Lng: *req.Lng, Lat: *req.Lat}
	if !p.Valid() {
		writeError(c, http.StatusBadRequest, "coordinates out of range")
		return
	}
	if req.Accuracy < 0 {
		writeError(c, http.StatusBadRequest, "accuracy must not be negative")
		return
	}
	fix := s.Tracker.Report(p, req.Accuracy)
	writeJSON(c, http.StatusOK, fix)
}
