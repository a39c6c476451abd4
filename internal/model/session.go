package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleSystem is only ever synthesized per request, never stored.
	RoleSystem Role = "system"
)

type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Session is one tutoring conversation. Messages are append-only and kept in
// chronological order.
type Session struct {
	ID            string     `json:"sessionId"`
	Topic         string     `json:"topic"`
	Messages      []Message  `json:"messages"`
	Quiz          *Quiz      `json:"quiz,omitempty"`
	QuizStartTime *time.Time `json:"quizStartTime,omitempty"`
	IsQuizActive  bool       `json:"isQuizActive"`
	CreatedAt     time.Time  `json:"createdAt"`

	// NextMessageSeq is the id the next appended message receives. It is
	// bookkeeping for the store and never part of an API response.
	NextMessageSeq int64 `json:"-"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Quiz = s.Quiz.Clone()
	if s.QuizStartTime != nil {
		t := *s.QuizStartTime
		out.QuizStartTime = &t
	}
	return &out
}

func (q *Quiz) Clone() *Quiz {
	if q == nil {
		return nil
	}
	out := *q
	out.Questions = make([]QuizQuestion, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return &out
}

// QuestionResult is the outcome of one answered quiz question.
type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	Question       string `json:"question"`
	SelectedAnswer int    `json:"selectedAnswer"`
	CorrectAnswer  int    `json:"correctAnswer"`
	SelectedOption string `json:"selectedOption"`
	CorrectOption  string `json:"correctOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

type QuizResult struct {
	QuizID      string           `json:"quizId"`
	Score       int              `json:"score"`
	Total       int              `json:"total"`
	Questions   []QuestionResult `json:"questions"`
	CompletedAt time.Time        `json:"completedAt"`
}
