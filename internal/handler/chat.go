package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tutor-backend/internal/model"
	"tutor-backend/internal/service"
	"tutor-backend/internal/utils"
	"tutor-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type StreamOptions struct {
	Timeout   time.Duration
	Heartbeat time.Duration
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.Timeout <= 0 {
		o.Timeout = 25 * time.Minute
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 30 * time.Second
	}
	return o
}

type ChatHandler struct {
	chatService *service.ChatService
	stream      StreamOptions
}

func NewChatHandler(chatService *service.ChatService, opts StreamOptions) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		stream:      opts.withDefaults(),
	}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), req.Topic, req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CreateSessionResponse{
		SessionID: session.ID,
		Topic:     session.Topic,
	})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	session, err := h.chatService.GetSession(c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), req.SessionID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.MessageResponse{
		SessionID: req.SessionID,
		Message:   message,
	})
}

// StreamChat answers over SSE. Deltas go out as "message" events, followed
// by one "done" event carrying the stored reply or one "error" event.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// reject what we can while a plain JSON error is still possible
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, fmt.Errorf("%w: message content is required", service.ErrInvalidInput))
		return
	}
	if _, err := h.chatService.GetSession(req.SessionID); err != nil {
		respondError(c, err)
		return
	}

	sseWriter := utils.NewSSEWriter(c.Writer)
	defer sseWriter.Close()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.stream.Timeout)
	defer cancel()

	go h.heartbeat(ctx, sseWriter)

	log := logger.WithFields(logrus.Fields{"session_id": req.SessionID})
	message, err := h.chatService.StreamMessage(ctx, req.SessionID, req.Content, func(delta string) error {
		return sseWriter.WriteJSON("message", model.StreamChunk{
			Type:      "delta",
			SessionID: req.SessionID,
			Content:   delta,
			Timestamp: time.Now().Unix(),
		})
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("stream timed out")
		} else {
			log.Errorf("stream failed: %v", err)
		}
		_, body := errorBody(err)
		sseWriter.WriteJSON("error", model.StreamChunk{
			Type:      "error",
			SessionID: req.SessionID,
			Error:     body.Error,
			Code:      body.Code,
			Timestamp: time.Now().Unix(),
		})
		return
	}

	if err := sseWriter.WriteJSON("done", model.StreamChunk{
		Type:      "done",
		SessionID: req.SessionID,
		Message:   message,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		log.Warnf("failed to write done event: %v", err)
	}
}

// heartbeat keeps idle proxies from dropping a slow stream.
func (h *ChatHandler) heartbeat(ctx context.Context, sseWriter *utils.SSEWriter) {
	ticker := time.NewTicker(h.stream.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sseWriter.WriteJSON("heartbeat", model.StreamChunk{
				Type:      "heartbeat",
				Timestamp: time.Now().Unix(),
			}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChatHandler) Summarize(c *gin.Context) {
	sessionID := c.Param("session_id")

	summary, err := h.chatService.Summarize(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SummaryResponse{
		SessionID: sessionID,
		Summary:   summary,
	})
}
