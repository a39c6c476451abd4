package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutor-backend/internal/config"
	"tutor-backend/internal/llm"
	"tutor-backend/internal/model"
	"tutor-backend/internal/storage"
	"tutor-backend/internal/timer"
	"tutor-backend/pkg/logger"

	"github.com/sirupsen/logrus"
)

// QuizGenerator is what the auto quiz timer calls on expiry. An auto quiz
// must not replace a quiz attached while it was being generated.
type QuizGenerator interface {
	GenerateAutoQuiz(ctx context.Context, sessionID string, questionCount int) (*model.Quiz, error)
}

type ChatService struct {
	storage   storage.Storage
	clients   *ClientRegistry
	scheduler *timer.Scheduler
	quizzes   QuizGenerator
	config    config.TutorConfig
}

func NewChatService(store storage.Storage, clients *ClientRegistry, scheduler *timer.Scheduler, quizzes QuizGenerator, cfg config.TutorConfig) *ChatService {
	return &ChatService{
		storage:   store,
		clients:   clients,
		scheduler: scheduler,
		quizzes:   quizzes,
		config:    cfg,
	}
}

// CreateSession builds the model client from credential first, so a bad
// credential never leaves an orphan session behind.
func (s *ChatService) CreateSession(ctx context.Context, topic, credential string) (*model.Session, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidInput)
	}

	client, err := s.clients.Build(ctx, credential)
	if err != nil {
		return nil, err
	}

	session, err := s.storage.CreateSession(topic)
	if err != nil {
		return nil, storageError("create session", "", err)
	}
	s.clients.Register(session.ID, client)

	logger.WithFields(logrus.Fields{"session_id": session.ID, "topic": topic}).Info("session created")
	return session, nil
}

func (s *ChatService) GetSession(sessionID string) (*model.Session, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}
	return session, nil
}

// SendMessage stores the user's turn, asks the model for a reply and stores
// that too. The user's message is kept even when the model call fails.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, text string) (*model.Message, error) {
	return s.reply(ctx, sessionID, text, nil)
}

// StreamMessage behaves like SendMessage but hands reply pieces to onDelta as
// they arrive. The assistant message is stored only once the stream is
// complete. An error returned by onDelta aborts the stream and is returned
// as is.
func (s *ChatService) StreamMessage(ctx context.Context, sessionID, text string, onDelta func(string) error) (*model.Message, error) {
	if onDelta == nil {
		return nil, fmt.Errorf("%w: delta callback is required", ErrInvalidInput)
	}
	return s.reply(ctx, sessionID, text, onDelta)
}

// deltaError marks failures raised by the caller's delta callback, so they
// are not mistaken for model failures.
type deltaError struct{ err error }

func (e *deltaError) Error() string { return e.err.Error() }
func (e *deltaError) Unwrap() error { return e.err }

func (s *ChatService) reply(ctx context.Context, sessionID, text string, onDelta func(string) error) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrInvalidInput)
	}
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	if _, err := s.storage.GetSession(sessionID); err != nil {
		return nil, storageError("get session", sessionID, err)
	}

	if _, err := s.storage.AppendMessage(sessionID, model.RoleUser, text); err != nil {
		return nil, storageError("append user message", sessionID, err)
	}

	// 追加后重新读取，请求里包含并发写入的全部消息
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}
	s.armAutoQuiz(session)

	client, err := s.clients.Get(sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := tutorMessages(ctx, session)
	if err != nil {
		return nil, err
	}
	log := logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"messages":   len(messages),
		"stream":     onDelta != nil,
	})
	log.Debug("calling model")

	var content string
	if onDelta == nil {
		content, err = client.Complete(ctx, messages, s.config.ChatMaxTokens)
	} else {
		content, err = streamOrComplete(ctx, client, messages, s.config.ChatMaxTokens, onDelta)
	}
	if err != nil {
		var de *deltaError
		if errors.As(err, &de) {
			log.Warnf("stream aborted by receiver: %v", de.err)
			return nil, de.err
		}
		log.Errorf("model call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	msg, err := s.storage.AppendMessage(sessionID, model.RoleAssistant, content)
	if err != nil {
		return nil, storageError("append assistant message", sessionID, err)
	}

	log.WithField("reply", logger.Truncate(content, 80)).Info("reply stored")
	return msg, nil
}

// streamOrComplete streams when the client can, and otherwise delivers the
// whole reply as a single delta.
func streamOrComplete(ctx context.Context, client llm.Client, messages []llm.Message, maxTokens int, onDelta func(string) error) (string, error) {
	forward := func(delta string) error {
		if err := onDelta(delta); err != nil {
			return &deltaError{err: err}
		}
		return nil
	}

	if streamer, ok := client.(llm.Streamer); ok {
		return streamer.Stream(ctx, messages, maxTokens, forward)
	}

	content, err := client.Complete(ctx, messages, maxTokens)
	if err != nil {
		return "", err
	}
	if err := forward(content); err != nil {
		return "", err
	}
	return content, nil
}

// armAutoQuiz starts the session's one-shot quiz countdown when a
// conversation is under way and no quiz is being answered.
func (s *ChatService) armAutoQuiz(session *model.Session) {
	if s.scheduler == nil || s.quizzes == nil || s.config.AutoQuizAfter <= 0 {
		return
	}
	if len(session.Messages) == 0 || session.IsQuizActive {
		return
	}

	sessionID := session.ID
	armed := s.scheduler.Arm(sessionID, s.config.AutoQuizAfter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.autoQuizTimeout())
		defer cancel()

		log := logger.WithFields(logrus.Fields{"session_id": sessionID})
		quiz, err := s.quizzes.GenerateAutoQuiz(ctx, sessionID, s.config.AutoQuizQuestions)
		if errors.Is(err, ErrAutoQuizSuperseded) {
			log.Info("auto quiz dropped, another quiz was attached meanwhile")
			return
		}
		if err != nil {
			log.Errorf("auto quiz failed: %v", err)
			return
		}
		log.WithField("quiz_id", quiz.ID).Info("auto quiz attached")
	})
	if armed {
		logger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"after":      s.config.AutoQuizAfter.String(),
		}).Debug("auto quiz armed")
	}
}

func (s *ChatService) autoQuizTimeout() time.Duration {
	if s.config.AutoQuizTimeout > 0 {
		return s.config.AutoQuizTimeout
	}
	return 2 * time.Minute
}

// Summarize asks the model for a recap of the most recent turns. The summary
// is returned, not stored.
func (s *ChatService) Summarize(ctx context.Context, sessionID string) (string, error) {
	if err := requireSessionID(sessionID); err != nil {
		return "", err
	}
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return "", storageError("get session", sessionID, err)
	}
	if len(session.Messages) == 0 {
		return "", fmt.Errorf("%w: nothing to summarize yet", ErrInvalidInput)
	}

	client, err := s.clients.Get(sessionID)
	if err != nil {
		return "", err
	}

	messages, err := summaryMessages(ctx, session)
	if err != nil {
		return "", err
	}
	summary, err := client.Complete(ctx, messages, s.config.SummaryMaxTokens)
	if err != nil {
		logger.WithFields(logrus.Fields{"session_id": sessionID}).Errorf("summary failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(summary), nil
}
