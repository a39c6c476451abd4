package model

type CreateSessionRequest struct {
	Topic  string `json:"topic"`
	APIKey string `json:"apiKey"`
}

type SendMessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

type GenerateQuizRequest struct {
	SessionID    string `json:"sessionId"`
	NumQuestions *int   `json:"numQuestions"`
}

type SubmitQuizRequest struct {
	SessionID string `json:"sessionId"`
	Answers   []int  `json:"answers"`
}

type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// SocketRequest is a client frame on the chat websocket.
type SocketRequest struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}
