package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultQwenModel = "qwen-plus"

// EinoClient adapts any eino chat model (ark, qwen, ...) to Client.
type EinoClient struct {
	provider string
	chat     einoModel.BaseChatModel
}

func NewEinoClient(provider string, chat einoModel.BaseChatModel) *EinoClient {
	return &EinoClient{provider: provider, chat: chat}
}

// NewArkClient creates a Doubao (Volcengine Ark) client. opts.Model is the
// Ark endpoint id and is required.
func NewArkClient(ctx context.Context, apiKey string, opts Options) (*EinoClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ark API key is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("ark model endpoint is required")
	}

	chat, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:  apiKey,
		Model:   opts.Model,
		BaseURL: opts.BaseURL,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ark model: %w", err)
	}

	return NewEinoClient("ark", chat), nil
}

func NewQwenClient(ctx context.Context, apiKey string, opts Options) (*EinoClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("qwen API key is required")
	}

	model := opts.Model
	if model == "" {
		model = defaultQwenModel
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	temperature := opts.Temperature

	chat, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		Temperature: &temperature,
		Timeout:     opts.Timeout,
		HTTPClient:  newHTTPClient(opts),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qwen model: %w", err)
	}

	return NewEinoClient("qwen", chat), nil
}

func (c *EinoClient) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	msg, err := c.chat.Generate(ctx, toSchemaMessages(messages), einoModel.WithMaxTokens(maxTokens))
	if err != nil {
		return "", unavailable(c.provider, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", emptyResponse(c.provider)
	}
	return msg.Content, nil
}

func (c *EinoClient) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string) error) (string, error) {
	reader, err := c.chat.Stream(ctx, toSchemaMessages(messages), einoModel.WithMaxTokens(maxTokens))
	if err != nil {
		return "", unavailable(c.provider, err)
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", unavailable(c.provider, err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		full.WriteString(chunk.Content)
		if err := onDelta(chunk.Content); err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(full.String()) == "" {
		return "", emptyResponse(c.provider)
	}
	return full.String(), nil
}

func toSchemaMessages(messages []Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		role := schema.User
		switch msg.Role {
		case RoleAssistant:
			role = schema.Assistant
		case RoleSystem:
			role = schema.System
		}
		result = append(result, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}
