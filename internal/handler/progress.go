package handler

import (
	"fmt"
	"net/http"

	"tutor-backend/internal/model"
	"tutor-backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ProgressHandler exposes the per-session progress values (chat history
// copy, quiz score, quiz history, theme) the browser would otherwise keep.
// Only existing sessions have progress.
type ProgressHandler struct {
	sessions        sessionGetter
	progressService *service.ProgressService
}

func NewProgressHandler(sessions sessionGetter, progressService *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{sessions: sessions, progressService: progressService}
}

// sessionScope returns the route's session id once the session is known to
// exist. On false the error response is already written.
func (h *ProgressHandler) sessionScope(c *gin.Context) (string, bool) {
	sessionID := c.Param("session_id")
	if _, err := h.sessions.GetSession(sessionID); err != nil {
		respondError(c, err)
		return "", false
	}
	return sessionID, true
}

func (h *ProgressHandler) GetProgress(c *gin.Context) {
	scope, ok := h.sessionScope(c)
	if !ok {
		return
	}

	snapshot, err := h.progressService.Snapshot(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *ProgressHandler) SyncProgress(c *gin.Context) {
	scope, ok := h.sessionScope(c)
	if !ok {
		return
	}

	var req model.ProgressSnapshot
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	snapshot, err := h.progressService.Sync(c.Request.Context(), scope, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *ProgressHandler) SetTheme(c *gin.Context) {
	scope, ok := h.sessionScope(c)
	if !ok {
		return
	}

	var req model.ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := h.progressService.SetTheme(c.Request.Context(), scope, req.Theme); err != nil {
		respondError(c, err)
		return
	}

	snapshot, err := h.progressService.Snapshot(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
