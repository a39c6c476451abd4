// Package llm wraps hosted chat-completion providers behind one small call
// contract: ordered role-tagged messages and a token budget in, text out.
package llm

import (
	"context"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Client is the single call contract every provider implements. Any failure
// (transport, non-success status, no usable choice) is returned as an error;
// an empty reply is a failure too.
type Client interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)
}

// Streamer is implemented by clients that can deliver a reply incrementally.
// onDelta receives the pieces in order; the full text is returned at the end.
// A non-nil error from onDelta aborts the stream.
type Streamer interface {
	Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string) error) (string, error)
}

// Options are the provider-independent settings a client is built with.
type Options struct {
	Model        string
	BaseURL      string
	Temperature  float32
	Timeout      time.Duration
	DebugRequest bool
}

// Factory builds a Client from a caller-supplied credential. Credentials are
// handed to the client only, never stored alongside session state.
type Factory func(ctx context.Context, apiKey string) (Client, error)
