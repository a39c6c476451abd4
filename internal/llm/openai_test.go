package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient("test-key", Options{BaseURL: server.URL + "/v1", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	return client
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1234567890,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "Photosynthesis turns light into sugar.")
	})

	text, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a tutor."},
		{Role: RoleUser, Content: "What is photosynthesis?"},
	}, 500)
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis turns light into sugar.", text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", Options{})
	assert.Error(t, err)
}

func TestOpenAIClient_EmptyContentIsUnavailable(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w, "   ")
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 10)

	var unavail *ErrProviderUnavailable
	require.ErrorAs(t, err, &unavail)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_NoChoicesIsUnavailable(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 10)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_RateLimit(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit exceeded","type":"rate_limit_error"}}`)
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 10)

	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestOpenAIClient_ServerError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, 10)

	var unavail *ErrProviderUnavailable
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "openai", unavail.Provider)
}

func TestOpenAIClient_Stream(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Light ", "becomes ", "sugar."} {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"created": 1234567890,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{
					{"index": 0, "delta": map[string]any{"content": piece}},
				},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var deltas []string
	text, err := client.Stream(context.Background(), []Message{{Role: RoleUser, Content: "explain"}}, 500, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Light becomes sugar.", text)
	assert.Equal(t, []string{"Light ", "becomes ", "sugar."}, deltas)
}

func TestOpenAIClient_StreamAbortsOnCallbackError(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"x","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"a"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"x","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"b"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stop := errors.New("client gone")
	calls := 0
	_, err := client.Stream(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 10, func(string) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
