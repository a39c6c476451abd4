package service

import (
	"context"
	"fmt"
	"sync"

	"tutor-backend/internal/llm"
)

// ClientRegistry holds the model client built from each session's
// credential. The credential itself is never kept.
type ClientRegistry struct {
	factory llm.Factory
	mu      sync.RWMutex
	clients map[string]llm.Client
}

func NewClientRegistry(factory llm.Factory) *ClientRegistry {
	return &ClientRegistry{
		factory: factory,
		clients: make(map[string]llm.Client),
	}
}

// Build creates a client for apiKey without registering it.
func (r *ClientRegistry) Build(ctx context.Context, apiKey string) (llm.Client, error) {
	client, err := r.factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return client, nil
}

func (r *ClientRegistry) Register(sessionID string, client llm.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[sessionID] = client
}

// Get returns the session's client. Sessions reloaded from disk after a
// restart have none until the client creates a new session.
func (r *ClientRegistry) Get(sessionID string) (llm.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: no model credential for session %s", ErrModelUnavailable, sessionID)
	}
	return client, nil
}
