package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"tutor-backend/pkg/logger"
)

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// RetryClient retries transient provider failures with exponential backoff
// and jitter.
type RetryClient struct {
	inner  Client
	config RetryConfig
}

// WithRetry wraps c with retry logic. With MaxAttempts <= 1 the client is
// returned unchanged.
func WithRetry(c Client, cfg RetryConfig) Client {
	if cfg.MaxAttempts <= 1 {
		return c
	}
	return &RetryClient{inner: c, config: cfg}
}

func (r *RetryClient) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	var lastErr error
	for attempt := range r.config.MaxAttempts {
		text, err := r.inner.Complete(ctx, messages, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == r.config.MaxAttempts-1 {
			break
		}
		if err := r.wait(ctx, attempt, err); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

// Stream retries only while nothing has been delivered to onDelta; once a
// delta went out a retry would duplicate text on the caller's side.
func (r *RetryClient) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string) error) (string, error) {
	streamer, ok := r.inner.(Streamer)
	if !ok {
		text, err := r.Complete(ctx, messages, maxTokens)
		if err != nil {
			return "", err
		}
		if err := onDelta(text); err != nil {
			return "", err
		}
		return text, nil
	}

	var lastErr error
	for attempt := range r.config.MaxAttempts {
		delivered := false
		text, err := streamer.Stream(ctx, messages, maxTokens, func(delta string) error {
			delivered = true
			return onDelta(delta)
		})
		if err == nil {
			return text, nil
		}
		lastErr = err

		if delivered || !shouldRetry(err) || attempt == r.config.MaxAttempts-1 {
			break
		}
		if err := r.wait(ctx, attempt, err); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (r *RetryClient) wait(ctx context.Context, attempt int, err error) error {
	wait := r.backoff(attempt, err)
	logger.Warnf("model call failed (attempt %d/%d), retrying in %s: %v", attempt+1, r.config.MaxAttempts, wait, err)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rl *ErrRateLimit
	if errors.As(err, &rl) {
		return true
	}
	var unavail *ErrProviderUnavailable
	return errors.As(err, &unavail)
}

func (r *RetryClient) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	multiplier := r.config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	wait := float64(r.config.InitialWait) * math.Pow(multiplier, float64(attempt))
	if r.config.MaxWait > 0 && wait > float64(r.config.MaxWait) {
		wait = float64(r.config.MaxWait)
	}

	// ±20% jitter
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
