package handler

import (
	"fmt"
	"net/http"

	"tutor-backend/internal/model"
	"tutor-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	quizService      *service.QuizService
	defaultQuestions int
}

func NewQuizHandler(quizService *service.QuizService, defaultQuestions int) *QuizHandler {
	if defaultQuestions <= 0 {
		defaultQuestions = 5
	}
	return &QuizHandler{
		quizService:      quizService,
		defaultQuestions: defaultQuestions,
	}
}

// GenerateQuiz replaces the session's quiz. numQuestions defaults when absent.
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	var req model.GenerateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	count := h.defaultQuestions
	if req.NumQuestions != nil {
		count = *req.NumQuestions
	}

	quiz, err := h.quizService.GenerateQuiz(c.Request.Context(), req.SessionID, count)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.QuizResponse{
		SessionID: req.SessionID,
		Quiz:      quiz,
	})
}

func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var req model.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := h.quizService.SubmitAnswers(c.Request.Context(), req.SessionID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.QuizResultResponse{
		SessionID: req.SessionID,
		Result:    result,
	})
}
