package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tutor-backend/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT3Dot5Turbo

type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient creates a client for OpenAI or any OpenAI-compatible API
// reachable at opts.BaseURL.
func NewOpenAIClient(apiKey string, opts Options) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(opts)

	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: opts.Temperature,
	}, nil
}

func newHTTPClient(opts Options) *http.Client {
	httpClient := utils.NewHTTPClient(opts.Timeout)
	if opts.DebugRequest {
		httpClient.Transport = NewDebugTransport(httpClient.Transport, true)
	}
	return httpClient
}

func (c *OpenAIClient) request(messages []Message, maxTokens int) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    convertOpenAIMessages(messages),
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(messages, maxTokens))
	if err != nil {
		return "", mapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", emptyResponse("openai")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", emptyResponse("openai")
	}

	return content, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string) error) (string, error) {
	req := c.request(messages, maxTokens)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", mapOpenAIError(err)
		}

		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}

		delta := response.Choices[0].Delta.Content
		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", emptyResponse("openai")
	}
	return full.String(), nil
}

func convertOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		}

		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}

func mapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return unavailable("openai", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: unavailable("openai", err)}
	}
	return unavailable("openai", err)
}
