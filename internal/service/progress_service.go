package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"tutor-backend/internal/localstore"
	"tutor-backend/internal/model"
)

const defaultTheme = "light"

// ProgressService keeps the client's score counters, quiz history, chat
// history and theme. Missing values read as their defaults.
type ProgressService struct {
	store localstore.Store
	// serialises read-modify-write of the counters
	mu  sync.Mutex
	now func() time.Time
}

func NewProgressService(store localstore.Store) *ProgressService {
	return &ProgressService{store: store, now: time.Now}
}

func (p *ProgressService) Snapshot(ctx context.Context, scope string) (*model.ProgressSnapshot, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("%w: scope is required", ErrInvalidInput)
	}

	snapshot := &model.ProgressSnapshot{
		ChatHistory: make([]model.Message, 0),
		QuizHistory: make([]model.QuizHistoryEntry, 0),
		Theme:       defaultTheme,
	}

	fields := []struct {
		key string
		dst any
	}{
		{localstore.KeyChatHistory, &snapshot.ChatHistory},
		{localstore.KeyQuizScoreCorrect, &snapshot.CorrectAnswer},
		{localstore.KeyQuizScoreTotal, &snapshot.TotalAnswered},
		{localstore.KeyQuizHistory, &snapshot.QuizHistory},
		{localstore.KeyTheme, &snapshot.Theme},
	}
	for _, f := range fields {
		if err := p.load(ctx, scope, f.key, f.dst); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

func (p *ProgressService) load(ctx context.Context, scope, key string, dst any) error {
	raw, ok, err := p.store.Get(ctx, scope, key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// RecordQuizResult adds a scored quiz to the counters and history.
func (p *ProgressService) RecordQuizResult(ctx context.Context, scope string, result *model.QuizResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is required", ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.Snapshot(ctx, scope)
	if err != nil {
		return err
	}

	current.CorrectAnswer += result.Score
	current.TotalAnswered += result.Total

	at := result.CompletedAt
	if at.IsZero() {
		at = p.now()
	}
	for _, q := range result.Questions {
		current.QuizHistory = append(current.QuizHistory, model.QuizHistoryEntry{
			Question:       q.Question,
			CorrectAnswer:  q.CorrectOption,
			SelectedAnswer: q.SelectedOption,
			IsCorrect:      q.IsCorrect,
			Timestamp:      at,
		})
	}

	return p.write(ctx, scope, map[string]any{
		localstore.KeyQuizScoreCorrect: current.CorrectAnswer,
		localstore.KeyQuizScoreTotal:   current.TotalAnswered,
		localstore.KeyQuizHistory:      current.QuizHistory,
	})
}

// Sync replaces the stored values with the client's copy.
func (p *ProgressService) Sync(ctx context.Context, scope string, snapshot *model.ProgressSnapshot) (*model.ProgressSnapshot, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("%w: snapshot is required", ErrInvalidInput)
	}
	if snapshot.CorrectAnswer < 0 || snapshot.TotalAnswered < 0 || snapshot.CorrectAnswer > snapshot.TotalAnswered {
		return nil, fmt.Errorf("%w: score %d/%d is inconsistent", ErrInvalidInput, snapshot.CorrectAnswer, snapshot.TotalAnswered)
	}
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("%w: scope is required", ErrInvalidInput)
	}

	values := map[string]any{
		localstore.KeyQuizScoreCorrect: snapshot.CorrectAnswer,
		localstore.KeyQuizScoreTotal:   snapshot.TotalAnswered,
		localstore.KeyQuizHistory:      nonNil(snapshot.QuizHistory),
		localstore.KeyChatHistory:      nonNil(snapshot.ChatHistory),
	}
	if snapshot.Theme != "" {
		values[localstore.KeyTheme] = snapshot.Theme
	}

	p.mu.Lock()
	err := p.write(ctx, scope, values)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.Snapshot(ctx, scope)
}

func (p *ProgressService) SetTheme(ctx context.Context, scope, theme string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return fmt.Errorf("%w: theme is required", ErrInvalidInput)
	}
	if strings.TrimSpace(scope) == "" {
		return fmt.Errorf("%w: scope is required", ErrInvalidInput)
	}
	return p.write(ctx, scope, map[string]any{localstore.KeyTheme: theme})
}

func (p *ProgressService) write(ctx context.Context, scope string, values map[string]any) error {
	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		encoded[key] = raw
	}
	if err := p.store.SetMany(ctx, scope, encoded); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}
	return s
}
