package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"tutor-backend/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQuiz_MalformedLeavesQuizAbsent(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Text: "not json"})
	session := f.session(t, "Photosynthesis")

	_, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	assert.ErrorIs(t, err, ErrQuizMalformed)

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Quiz)
	assert.False(t, got.IsQuizActive)
}

func TestGenerateQuiz_AttachesRequestedCount(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Text: quizReply(2)})
	session := f.session(t, "Photosynthesis")

	quiz, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, quiz.ID)
	assert.False(t, quiz.CreatedAt.IsZero())
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "0", quiz.Questions[0].ID)
	assert.Equal(t, "1", quiz.Questions[1].ID)

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Quiz)
	assert.Equal(t, quiz.ID, got.Quiz.ID)
	assert.Len(t, got.Quiz.Questions, 2)
	assert.True(t, got.IsQuizActive)
	assert.NotNil(t, got.QuizStartTime)

	call, ok := f.mock.LastCall()
	require.True(t, ok)
	assert.Equal(t, 1000, call.MaxTokens)
	assert.Equal(t, llm.RoleSystem, call.Messages[0].Role)
	assert.Contains(t, call.Messages[0].Content, "exactly 2 questions")
}

func TestGenerateQuiz_WrongCountIsMalformed(t *testing.T) {
	f := newFixture(t, testTutorConfig(),
		llm.MockResponse{Text: quizReply(2)},
		llm.MockResponse{Text: quizReply(4)},
	)
	session := f.session(t, "Photosynthesis")

	first, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 2)
	require.NoError(t, err)

	_, err = f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	assert.ErrorIs(t, err, ErrQuizMalformed)

	// the earlier quiz is untouched
	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.Quiz.ID)
}

func TestGenerateQuiz_Validation(t *testing.T) {
	f := newFixture(t, testTutorConfig())
	session := f.session(t, "Photosynthesis")

	for _, n := range []int{0, -1, 21} {
		_, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, n)
		assert.ErrorIs(t, err, ErrInvalidInput, "count %d", n)
	}

	_, err := f.quizzes.GenerateQuiz(context.Background(), "missing", 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.mock.CallCount())
}

func TestGenerateQuiz_ModelFailure(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Err: &llm.ErrProviderUnavailable{Provider: "mock"}})
	session := f.session(t, "Photosynthesis")

	_, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 2)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Quiz)
}

func TestGenerateQuiz_UsesOnlyStoredTurns(t *testing.T) {
	f := newFixture(t, testTutorConfig(),
		llm.MockResponse{Text: "Light reactions happen in thylakoids."},
		llm.MockResponse{Text: quizReply(1)},
	)
	session := f.session(t, "Photosynthesis")

	_, err := f.chat.SendMessage(context.Background(), session.ID, "Where do light reactions happen?")
	require.NoError(t, err)
	_, err = f.quizzes.GenerateQuiz(context.Background(), session.ID, 1)
	require.NoError(t, err)

	call, ok := f.mock.LastCall()
	require.True(t, ok)
	require.Len(t, call.Messages, 3)
	assert.Equal(t, llm.RoleSystem, call.Messages[0].Role)
	assert.Equal(t, llm.RoleUser, call.Messages[1].Role)
	assert.Equal(t, llm.RoleAssistant, call.Messages[2].Role)
}

func TestAutoQuiz_FiresOnceAfterFirstMessage(t *testing.T) {
	cfg := testTutorConfig()
	cfg.AutoQuizAfter = 20 * time.Millisecond
	f := newFixture(t, cfg,
		llm.MockResponse{Text: "first"},
		llm.MockResponse{Text: quizReply(2)},
	)
	session := f.session(t, "Photosynthesis")

	_, err := f.chat.SendMessage(context.Background(), session.ID, "hello")
	require.NoError(t, err)
	assert.True(t, f.scheduler.Armed(session.ID))

	assert.Eventually(t, func() bool {
		got, err := f.chat.GetSession(session.ID)
		return err == nil && got.IsQuizActive && got.Quiz != nil && len(got.Quiz.Questions) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, f.mock.CallCount())
}

func TestAutoQuiz_DisarmedByManualQuiz(t *testing.T) {
	cfg := testTutorConfig()
	cfg.AutoQuizAfter = 50 * time.Millisecond
	f := newFixture(t, cfg,
		llm.MockResponse{Text: "first"},
		llm.MockResponse{Text: quizReply(3)},
		llm.MockResponse{Text: quizReply(2)},
	)
	session := f.session(t, "Photosynthesis")

	_, err := f.chat.SendMessage(context.Background(), session.ID, "hello")
	require.NoError(t, err)
	require.True(t, f.scheduler.Pending(session.ID))

	manual, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	require.NoError(t, err)
	assert.False(t, f.scheduler.Pending(session.ID))

	time.Sleep(100 * time.Millisecond)
	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, got.Quiz.ID)
	assert.Equal(t, 2, f.mock.CallCount())
}

func TestGenerateQuiz_DisarmsBeforeModelCall(t *testing.T) {
	cfg := testTutorConfig()
	cfg.AutoQuizAfter = time.Hour
	f := newFixture(t, cfg, llm.MockResponse{Text: "first"})
	session := f.session(t, "Photosynthesis")

	_, err := f.chat.SendMessage(context.Background(), session.ID, "hello")
	require.NoError(t, err)
	require.True(t, f.scheduler.Pending(session.ID))

	pendingDuringCall := true
	f.mock.Respond = func(_ []llm.Message, _ int) (string, error) {
		pendingDuringCall = f.scheduler.Pending(session.ID)
		return quizReply(2), nil
	}

	_, err = f.quizzes.GenerateQuiz(context.Background(), session.ID, 2)
	require.NoError(t, err)
	assert.False(t, pendingDuringCall)
}

func TestGenerateAutoQuiz_DroppedWhenQuizAttachedMeanwhile(t *testing.T) {
	f := newFixture(t, testTutorConfig())
	session := f.session(t, "Photosynthesis")

	started := make(chan struct{})
	release := make(chan struct{})
	f.mock.Respond = func(messages []llm.Message, _ int) (string, error) {
		if strings.Contains(messages[0].Content, "exactly 2 questions") {
			close(started)
			<-release
			return quizReply(2), nil
		}
		return quizReply(3), nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.quizzes.GenerateAutoQuiz(context.Background(), session.ID, 2)
		done <- err
	}()

	<-started
	manual, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	require.NoError(t, err)
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrAutoQuizSuperseded)
	case <-time.After(time.Second):
		t.Fatal("auto quiz did not finish")
	}

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Quiz)
	assert.Equal(t, manual.ID, got.Quiz.ID)
	assert.Len(t, got.Quiz.Questions, 3)
	assert.True(t, got.IsQuizActive)
}

func TestGenerateAutoQuiz_SkipsQuizBeingAnswered(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Text: quizReply(3)})
	session := f.session(t, "Photosynthesis")

	manual, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	require.NoError(t, err)

	_, err = f.quizzes.GenerateAutoQuiz(context.Background(), session.ID, 2)
	assert.ErrorIs(t, err, ErrAutoQuizSuperseded)
	assert.Equal(t, 1, f.mock.CallCount())

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, manual.ID, got.Quiz.ID)
}

func TestGenerateAutoQuiz_ReplacesCompletedQuiz(t *testing.T) {
	f := newFixture(t, testTutorConfig(),
		llm.MockResponse{Text: quizReply(1)},
		llm.MockResponse{Text: quizReply(2)},
	)
	session := f.session(t, "Photosynthesis")

	_, err := f.quizzes.GenerateQuiz(context.Background(), session.ID, 1)
	require.NoError(t, err)
	_, err = f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0})
	require.NoError(t, err)

	auto, err := f.quizzes.GenerateAutoQuiz(context.Background(), session.ID, 2)
	require.NoError(t, err)

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, auto.ID, got.Quiz.ID)
	assert.True(t, got.IsQuizActive)
}

func TestBlankSessionIDIsInvalidInput(t *testing.T) {
	f := newFixture(t, testTutorConfig())
	ctx := context.Background()

	for _, id := range []string{"", "   "} {
		_, err := f.chat.GetSession(id)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.chat.SendMessage(ctx, id, "hi")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.chat.StreamMessage(ctx, id, "hi", func(string) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.chat.Summarize(ctx, id)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.quizzes.GenerateQuiz(ctx, id, 2)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.quizzes.GenerateAutoQuiz(ctx, id, 2)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.quizzes.SubmitAnswers(ctx, id, []int{0})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, f.mock.CallCount())
}

func TestAutoQuiz_Disabled(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Text: "first"})
	session := f.session(t, "Photosynthesis")

	_, err := f.chat.SendMessage(context.Background(), session.ID, "hello")
	require.NoError(t, err)
	assert.False(t, f.scheduler.Armed(session.ID))
}

func TestSubmitAnswers(t *testing.T) {
	f := newFixture(t, testTutorConfig(), llm.MockResponse{Text: quizReply(3)})
	session := f.session(t, "Photosynthesis")

	_, err := f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0})
	assert.ErrorIs(t, err, ErrNoActiveQuiz)

	_, err = f.quizzes.GenerateQuiz(context.Background(), session.ID, 3)
	require.NoError(t, err)

	_, err = f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0, 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0, 1, 9})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// correct answers are 0, 1, 2
	result, err := f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Questions, 3)
	assert.False(t, result.Questions[1].IsCorrect)
	assert.Equal(t, "D", result.Questions[1].SelectedOption)
	assert.Equal(t, "B", result.Questions[1].CorrectOption)

	got, err := f.chat.GetSession(session.ID)
	require.NoError(t, err)
	assert.False(t, got.IsQuizActive)
	assert.NotNil(t, got.Quiz)

	_, err = f.quizzes.SubmitAnswers(context.Background(), session.ID, []int{0, 1, 2})
	assert.ErrorIs(t, err, ErrNoActiveQuiz)

	progress, err := f.progress.Snapshot(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.CorrectAnswer)
	assert.Equal(t, 3, progress.TotalAnswered)
	require.Len(t, progress.QuizHistory, 3)
	assert.Equal(t, "Question 2?", progress.QuizHistory[1].Question)
	assert.Equal(t, "B", progress.QuizHistory[1].CorrectAnswer)
	assert.Equal(t, "D", progress.QuizHistory[1].SelectedAnswer)
}
