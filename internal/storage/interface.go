package storage

import (
	"tutor-backend/internal/model"
)

// Storage owns every Session. Each mutating call is atomic with respect to
// the others, so concurrent appends never interleave inside one operation.
// Returned sessions and messages are copies.
type Storage interface {
	// 会话管理
	CreateSession(topic string) (*model.Session, error)
	GetSession(sessionID string) (*model.Session, error)
	ListSessions() ([]*model.Session, error)

	// 消息管理
	AppendMessage(sessionID string, role model.Role, content string) (*model.Message, error)

	// 测验管理
	AttachQuiz(sessionID string, quiz *model.Quiz) error
	// CompleteQuiz clears the quiz-active flag if quizID is the active quiz.
	CompleteQuiz(sessionID, quizID string) (*model.Session, error)

	// 存储管理
	Init() error
	Close() error
}
