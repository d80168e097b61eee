// README: History handler lists a session's recent search selections.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfinder/internal/modules/history"
	"wayfinder/internal/modules/session"
)

type HistoryHandler struct {
	sessions *session.Manager
	history  *history.Service
	log      *zap.Logger
}

// NewHistoryHandler builds the handler. svc may be nil when no database is configured.
func NewHistoryHandler(sessions *session.Manager, svc *history.Service, log *zap.Logger) *HistoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryHandler{sessions: sessions, history: svc, log: log}
}

func (h *HistoryHandler) Recent(c *gin.Context) {
	s, ok := lookupSession(c, h.sessions)
	if !ok {
		return
	}
	if h.history == nil {
		writeJSON(c, http.StatusOK, map[string]any{"enabled": false, "items": []history.Entry{}})
		return
	}
	items, err := h.history.Recent(c.Request.Context(), s.ID)
	if err != nil {
		h.log.Error("list recent searches failed", zap.String("session_id", string(s.ID)), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []history.Entry{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"enabled": true, "items": items})
}
