package handler

import (
	"net/http"

	"tutor-backend/internal/model"
	"tutor-backend/internal/timer"

	"github.com/gin-gonic/gin"
)

type sessionGetter interface {
	GetSession(sessionID string) (*model.Session, error)
}

// PomodoroHandler drives one study timer per existing session.
type PomodoroHandler struct {
	sessions  sessionGetter
	pomodoros *timer.PomodoroManager
}

func NewPomodoroHandler(sessions sessionGetter, pomodoros *timer.PomodoroManager) *PomodoroHandler {
	return &PomodoroHandler{sessions: sessions, pomodoros: pomodoros}
}

func (h *PomodoroHandler) GetState(c *gin.Context) {
	h.withSession(c, h.pomodoros.State)
}

func (h *PomodoroHandler) Toggle(c *gin.Context) {
	h.withSession(c, h.pomodoros.Toggle)
}

func (h *PomodoroHandler) Reset(c *gin.Context) {
	h.withSession(c, h.pomodoros.Reset)
}

func (h *PomodoroHandler) withSession(c *gin.Context, op func(sessionID string) model.PomodoroState) {
	sessionID := c.Param("session_id")
	if _, err := h.sessions.GetSession(sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, op(sessionID))
}
