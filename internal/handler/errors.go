package handler

import (
	"errors"
	"net/http"

	"tutor-backend/internal/model"
	"tutor-backend/internal/service"
	"tutor-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	codeInvalidInput     = "invalid_input"
	codeNotFound         = "not_found"
	codeModelUnavailable = "model_unavailable"
	codeQuizMalformed    = "quiz_malformed"
	codeNoActiveQuiz     = "no_active_quiz"
	codeInternal         = "internal"
)

// classify maps a service error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrNoActiveQuiz):
		return http.StatusConflict, codeNoActiveQuiz
	case errors.Is(err, service.ErrModelUnavailable):
		return http.StatusInternalServerError, codeModelUnavailable
	case errors.Is(err, service.ErrQuizMalformed):
		return http.StatusInternalServerError, codeQuizMalformed
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func errorBody(err error) (int, model.ErrorResponse) {
	status, code := classify(err)
	return status, model.ErrorResponse{Error: err.Error(), Code: code}
}

func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error(), Code: codeInvalidInput})
}
