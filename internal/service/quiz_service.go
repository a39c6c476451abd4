package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tutor-backend/internal/config"
	"tutor-backend/internal/model"
	"tutor-backend/internal/quiz"
	"tutor-backend/internal/storage"
	"tutor-backend/internal/timer"
	"tutor-backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ResultRecorder receives every scored quiz.
type ResultRecorder interface {
	RecordQuizResult(ctx context.Context, scope string, result *model.QuizResult) error
}

type QuizService struct {
	storage   storage.Storage
	clients   *ClientRegistry
	scheduler *timer.Scheduler
	results   ResultRecorder
	config    config.TutorConfig
	now       func() time.Time

	// attachMu orders attaches so the auto quiz check and its attach
	// cannot interleave with a manual attach.
	attachMu sync.Mutex
}

func NewQuizService(store storage.Storage, clients *ClientRegistry, scheduler *timer.Scheduler, results ResultRecorder, cfg config.TutorConfig) *QuizService {
	return &QuizService{
		storage:   store,
		clients:   clients,
		scheduler: scheduler,
		results:   results,
		config:    cfg,
		now:       time.Now,
	}
}

// ErrAutoQuizSuperseded reports an auto quiz that was dropped because a
// quiz was attached, or was being answered, when it finished generating.
var ErrAutoQuizSuperseded = errors.New("auto quiz superseded")

// GenerateQuiz asks the model for a quiz over the conversation so far and
// attaches it. On any failure the session's current quiz is left as it was.
func (s *QuizService) GenerateQuiz(ctx context.Context, sessionID string, questionCount int) (*model.Quiz, error) {
	if err := s.validateRequest(sessionID, questionCount); err != nil {
		return nil, err
	}

	// a pending auto quiz must not land on top of this one
	if s.scheduler != nil && s.scheduler.Disarm(sessionID) {
		logger.WithFields(logrus.Fields{"session_id": sessionID}).Debug("auto quiz disarmed")
	}

	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}

	generated, err := s.generate(ctx, session, questionCount)
	if err != nil {
		return nil, err
	}

	s.attachMu.Lock()
	err = s.storage.AttachQuiz(sessionID, generated)
	s.attachMu.Unlock()
	if err != nil {
		return nil, storageError("attach quiz", sessionID, err)
	}

	logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"quiz_id":    generated.ID,
	}).Info("quiz attached")
	return generated, nil
}

// GenerateAutoQuiz is GenerateQuiz for the auto quiz timer. The quiz is
// attached only if the session still holds the quiz it had when generation
// started and that quiz is not being answered; otherwise it is discarded
// with ErrAutoQuizSuperseded.
func (s *QuizService) GenerateAutoQuiz(ctx context.Context, sessionID string, questionCount int) (*model.Quiz, error) {
	if err := s.validateRequest(sessionID, questionCount); err != nil {
		return nil, err
	}

	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}
	if session.IsQuizActive {
		return nil, ErrAutoQuizSuperseded
	}
	startQuizID := quizID(session.Quiz)

	generated, err := s.generate(ctx, session, questionCount)
	if err != nil {
		return nil, err
	}

	s.attachMu.Lock()
	defer s.attachMu.Unlock()

	current, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}
	if current.IsQuizActive || quizID(current.Quiz) != startQuizID {
		return nil, ErrAutoQuizSuperseded
	}
	if err := s.storage.AttachQuiz(sessionID, generated); err != nil {
		return nil, storageError("attach quiz", sessionID, err)
	}
	return generated, nil
}

func (s *QuizService) validateRequest(sessionID string, questionCount int) error {
	if questionCount < 1 {
		return fmt.Errorf("%w: question count must be at least 1, got %d", ErrInvalidInput, questionCount)
	}
	if s.config.MaxQuizQuestions > 0 && questionCount > s.config.MaxQuizQuestions {
		return fmt.Errorf("%w: question count must be at most %d, got %d", ErrInvalidInput, s.config.MaxQuizQuestions, questionCount)
	}
	return requireSessionID(sessionID)
}

// generate runs the model call and parses its output into a quiz with a
// fresh id. Nothing is stored.
func (s *QuizService) generate(ctx context.Context, session *model.Session, questionCount int) (*model.Quiz, error) {
	client, err := s.clients.Get(session.ID)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"questions":  questionCount,
	})

	messages := withSystem(quiz.SystemPrompt(session.Topic, questionCount), session.Messages)
	raw, err := client.Complete(ctx, messages, s.config.QuizMaxTokens)
	if err != nil {
		log.Errorf("quiz model call failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	generated, err := quiz.Parse(raw, questionCount)
	if err != nil {
		log.WithField("raw", logger.Truncate(raw, 200)).Warnf("quiz rejected: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrQuizMalformed, err)
	}
	generated.ID = uuid.New().String()
	generated.CreatedAt = s.now()
	return generated, nil
}

func quizID(q *model.Quiz) string {
	if q == nil {
		return ""
	}
	return q.ID
}

// SubmitAnswers scores answers against the active quiz, closes it and
// records the result. answers[i] is the chosen option index of question i.
func (s *QuizService) SubmitAnswers(ctx context.Context, sessionID string, answers []int) (*model.QuizResult, error) {
	if err := requireSessionID(sessionID); err != nil {
		return nil, err
	}
	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, storageError("get session", sessionID, err)
	}
	if !session.IsQuizActive || session.Quiz == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveQuiz, sessionID)
	}

	active := session.Quiz
	if len(answers) != len(active.Questions) {
		return nil, fmt.Errorf("%w: expected %d answers, got %d", ErrInvalidInput, len(active.Questions), len(answers))
	}

	result := &model.QuizResult{
		QuizID:    active.ID,
		Total:     len(active.Questions),
		Questions: make([]model.QuestionResult, 0, len(active.Questions)),
	}
	for i, q := range active.Questions {
		selected := answers[i]
		if selected < 0 || selected >= len(q.Options) {
			return nil, fmt.Errorf("%w: answer %d out of range for question %d", ErrInvalidInput, selected, i)
		}

		correct := selected == q.CorrectAnswer
		if correct {
			result.Score++
		}
		result.Questions = append(result.Questions, model.QuestionResult{
			QuestionID:     q.ID,
			Question:       q.Question,
			SelectedAnswer: selected,
			CorrectAnswer:  q.CorrectAnswer,
			SelectedOption: q.Options[selected],
			CorrectOption:  q.Options[q.CorrectAnswer],
			IsCorrect:      correct,
		})
	}

	// fails if the quiz was replaced or already submitted meanwhile
	if _, err := s.storage.CompleteQuiz(sessionID, active.ID); err != nil {
		return nil, storageError("complete quiz", sessionID, err)
	}
	result.CompletedAt = s.now()

	log := logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"quiz_id":    active.ID,
		"score":      result.Score,
		"total":      result.Total,
	})
	if s.results != nil {
		if err := s.results.RecordQuizResult(ctx, sessionID, result); err != nil {
			// the quiz is closed already; the submit still succeeds
			log.Warnf("failed to record quiz result: %v", err)
		}
	}

	log.Info("quiz completed")
	return result, nil
}
