package service

import (
	"errors"
	"fmt"
	"strings"

	"tutor-backend/internal/storage"
)

// Failure kinds surfaced to callers. Every error the handlers see from the services
// wraps exactly one of these.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("session not found")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrQuizMalformed    = errors.New("quiz malformed")
	ErrNoActiveQuiz     = errors.New("no active quiz")
)

// storageError translates storage failures into service failure kinds.
func storageError(op, sessionID string, err error) error {
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	case errors.Is(err, storage.ErrNoActiveQuiz):
		return fmt.Errorf("%w: %s", ErrNoActiveQuiz, sessionID)
	case errors.Is(err, storage.ErrInvalidData):
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, op, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// requireSessionID rejects a blank session id before any lookup, so it is
// reported as bad input rather than an unknown session.
func requireSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	return nil
}
