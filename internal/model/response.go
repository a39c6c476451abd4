package model

import "time"

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Topic     string `json:"topic"`
}

type MessageResponse struct {
	SessionID string   `json:"sessionId"`
	Message   *Message `json:"message"`
}

type QuizResponse struct {
	SessionID string `json:"sessionId"`
	Quiz      *Quiz  `json:"quiz"`
}

type QuizResultResponse struct {
	SessionID string      `json:"sessionId"`
	Result    *QuizResult `json:"result"`
}

type SummaryResponse struct {
	SessionID string `json:"sessionId"`
	Summary   string `json:"summary"`
}

// ErrorResponse carries both a readable message and a stable code the UI can
// switch on.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StreamChunk is one SSE or websocket frame of a streamed reply.
type StreamChunk struct {
	Type      string   `json:"type"`
	ID        string   `json:"id,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
	Content   string   `json:"content,omitempty"`
	Message   *Message `json:"message,omitempty"`
	Error     string   `json:"error,omitempty"`
	Code      string   `json:"code,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// QuizHistoryEntry mirrors one element of the client's quiz_history list.
type QuizHistoryEntry struct {
	Question       string    `json:"question"`
	CorrectAnswer  string    `json:"correct_answer"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProgressSnapshot is the full set of client-local values for one scope.
type ProgressSnapshot struct {
	ChatHistory   []Message          `json:"chat_history"`
	CorrectAnswer int                `json:"quiz_score_correct"`
	TotalAnswered int                `json:"quiz_score_total"`
	QuizHistory   []QuizHistoryEntry `json:"quiz_history"`
	Theme         string             `json:"theme"`
}

type PomodoroState struct {
	Phase     string `json:"phase"`
	Remaining int64  `json:"remainingSeconds"`
	Display   string `json:"display"`
	Running   bool   `json:"running"`
	Expired   bool   `json:"expired"`
}
