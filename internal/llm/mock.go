package llm

import (
	"context"
	"strings"
	"sync"
)

// MockResponse is one canned reply of a MockClient.
type MockResponse struct {
	Text string
	Err  error
}

// MockClient is a deterministic Client. It returns canned responses in FIFO
// order and records every request. When Respond is set it is used once the
// queue is empty.
type MockClient struct {
	mu        sync.Mutex
	responses []MockResponse
	Respond   func(messages []Message, maxTokens int) (string, error)
	Calls     []MockCall
}

type MockCall struct {
	Messages  []Message
	MaxTokens int
}

func NewMockClient(responses ...MockResponse) *MockClient {
	return &MockClient{responses: responses}
}

func (m *MockClient) Complete(_ context.Context, messages []Message, maxTokens int) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{
		Messages:  append([]Message(nil), messages...),
		MaxTokens: maxTokens,
	})

	if len(m.responses) == 0 {
		respond := m.Respond
		m.mu.Unlock()
		if respond != nil {
			return respond(messages, maxTokens)
		}
		return "", unavailable("mock", nil)
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if resp.Err != nil {
		return "", resp.Err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", emptyResponse("mock")
	}
	return resp.Text, nil
}

// Stream delivers the next canned reply word by word.
func (m *MockClient) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string) error) (string, error) {
	text, err := m.Complete(ctx, messages, maxTokens)
	if err != nil {
		return "", err
	}

	for _, piece := range strings.SplitAfter(text, " ") {
		if piece == "" {
			continue
		}
		if err := onDelta(piece); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (m *MockClient) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or false when there was none.
func (m *MockClient) LastCall() (MockCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return MockCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
