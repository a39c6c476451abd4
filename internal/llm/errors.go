package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyResponse is wrapped when a provider answered without usable text.
var ErrEmptyResponse = errors.New("empty response")

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down, unreachable, or
// returned nothing usable.
type ErrProviderUnavailable struct {
	Provider string
	Err      error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s provider unavailable", e.Provider)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

func unavailable(provider string, err error) error {
	return &ErrProviderUnavailable{Provider: provider, Err: err}
}

func emptyResponse(provider string) error {
	return unavailable(provider, ErrEmptyResponse)
}
