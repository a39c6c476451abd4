package storage

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"tutor-backend/internal/model"

	"github.com/google/uuid"
)

type MemoryStorage struct {
	sessions map[string]*model.Session
	mu       sync.RWMutex
	now      func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func newSession(topic string, now time.Time) *model.Session {
	return &model.Session{
		ID:             uuid.New().String(),
		Topic:          topic,
		Messages:       make([]model.Message, 0),
		CreatedAt:      now,
		NextMessageSeq: 1,
	}
}

// appendTo assigns the next monotonic id within the session and appends.
// Callers hold the write lock.
func appendTo(session *model.Session, role model.Role, content string, now time.Time) model.Message {
	msg := model.Message{
		ID:        strconv.FormatInt(session.NextMessageSeq, 10),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	session.NextMessageSeq++
	session.Messages = append(session.Messages, msg)
	return msg
}

func attachTo(session *model.Session, quiz *model.Quiz, now time.Time) {
	session.Quiz = quiz.Clone()
	session.IsQuizActive = true
	session.QuizStartTime = &now
}

func checkActiveQuiz(session *model.Session, quizID string) error {
	if !session.IsQuizActive || session.Quiz == nil || session.Quiz.ID != quizID {
		return ErrNoActiveQuiz
	}
	return nil
}

func (m *MemoryStorage) CreateSession(topic string) (*model.Session, error) {
	if topic == "" {
		return nil, ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session := newSession(topic, m.now())
	m.sessions[session.ID] = session
	return session.Clone(), nil
}

func (m *MemoryStorage) GetSession(sessionID string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (m *MemoryStorage) ListSessions() ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*model.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session.Clone())
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (m *MemoryStorage) AppendMessage(sessionID string, role model.Role, content string) (*model.Message, error) {
	if role == model.RoleSystem {
		return nil, ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	msg := appendTo(session, role, content, m.now())
	return &msg, nil
}

func (m *MemoryStorage) AttachQuiz(sessionID string, quiz *model.Quiz) error {
	if quiz == nil {
		return ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	attachTo(session, quiz, m.now())
	return nil
}

func (m *MemoryStorage) CompleteQuiz(sessionID, quizID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if err := checkActiveQuiz(session, quizID); err != nil {
		return nil, err
	}

	session.IsQuizActive = false
	return session.Clone(), nil
}
