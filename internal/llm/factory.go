package llm

import (
	"context"
	"fmt"

	"tutor-backend/internal/config"
)

// NewFactory returns a Factory building clients for the configured provider,
// wrapped with retry when enabled. The "mock" provider echoes a fixed reply
// so the server can run without network access.
func NewFactory(cfg config.ModelConfig) (Factory, error) {
	opts := Options{
		Model:        cfg.Model,
		BaseURL:      cfg.BaseURL,
		Temperature:  cfg.Temperature,
		Timeout:      cfg.Timeout,
		DebugRequest: cfg.DebugRequest,
	}
	retry := RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		InitialWait: cfg.Retry.InitialWait,
		MaxWait:     cfg.Retry.MaxWait,
		Multiplier:  cfg.Retry.Multiplier,
	}

	var build func(ctx context.Context, apiKey string) (Client, error)
	switch cfg.Provider {
	case "openai":
		build = func(_ context.Context, apiKey string) (Client, error) {
			return NewOpenAIClient(apiKey, opts)
		}
	case "ark":
		build = func(ctx context.Context, apiKey string) (Client, error) {
			return NewArkClient(ctx, apiKey, opts)
		}
	case "qwen":
		build = func(ctx context.Context, apiKey string) (Client, error) {
			return NewQwenClient(ctx, apiKey, opts)
		}
	case "anthropic":
		build = func(_ context.Context, apiKey string) (Client, error) {
			return NewAnthropicClient(apiKey, opts)
		}
	case "gemini":
		build = func(ctx context.Context, apiKey string) (Client, error) {
			return NewGeminiClient(ctx, apiKey, opts)
		}
	case "mock":
		build = func(_ context.Context, _ string) (Client, error) {
			mock := NewMockClient()
			mock.Respond = func(_ []Message, _ int) (string, error) {
				return "This is a mock tutor reply.", nil
			}
			return mock, nil
		}
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
	}

	return func(ctx context.Context, apiKey string) (Client, error) {
		client, err := build(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("initializing %s client: %w", cfg.Provider, err)
		}
		return WithRetry(client, retry), nil
	}, nil
}
