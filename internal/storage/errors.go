package storage

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveQuiz    = errors.New("no active quiz")
	ErrInvalidData     = errors.New("invalid data")
	ErrStorageInit     = errors.New("storage initialization failed")
	ErrFileOperation   = errors.New("file operation failed")
)
