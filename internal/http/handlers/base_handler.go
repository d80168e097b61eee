// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wayfinder/internal/modules/interaction"
	"wayfinder/internal/modules/session"
	"wayfinder/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type acceptedResponse struct {
	Status string `json:"status"`
}

var accepted = acceptedResponse{Status: "accepted"}

// isValidID accepts the canonical 36-char UUID form used for session ids.
func isValidID(v string) bool {
	return len(v) == 36 && uuid.Validate(v) == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, interaction.ErrUnknownCandidate),
		errors.Is(err, interaction.ErrUnknownStep):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, interaction.ErrInvalidPoint),
		errors.Is(err, interaction.ErrNoEndpointChoice):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, interaction.ErrNoCurrentLocation),
		errors.Is(err, interaction.ErrNoActiveRoute),
		errors.Is(err, interaction.ErrEndpointsMissing):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, interaction.ErrClosed):
		writeError(c, http.StatusGone, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusServiceUnavailable, "request cancelled")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// lookupSession resolves the :id path parameter, writing the error response itself.
func lookupSession(c *gin.Context, sessions *session.Manager) (*session.Session, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	s, err := sessions.Get(types.ID(id))
	if err != nil {
		writeSessionError(c, err)
		return nil, false
	}
	return s, true
}
