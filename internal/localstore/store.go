// Package localstore persists the client-side progress values (score
// counters, quiz history, chat history, theme) under a fixed set of keys,
// scoped by an opaque client id.
package localstore

import (
	"context"
	"errors"
	"fmt"
)

const (
	KeyChatHistory      = "chat_history"
	KeyQuizScoreCorrect = "quiz_score_correct"
	KeyQuizScoreTotal   = "quiz_score_total"
	KeyQuizHistory      = "quiz_history"
	KeyTheme            = "theme"
)

var ErrUnknownKey = errors.New("unknown progress key")

var knownKeys = map[string]struct{}{
	KeyChatHistory:      {},
	KeyQuizScoreCorrect: {},
	KeyQuizScoreTotal:   {},
	KeyQuizHistory:      {},
	KeyTheme:            {},
}

func checkKey(key string) error {
	if _, ok := knownKeys[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// Store holds JSON-encoded values. A missing key is not an error: Get
// reports ok=false and the caller falls back to the default.
type Store interface {
	Get(ctx context.Context, scope, key string) (value []byte, ok bool, err error)

	Set(ctx context.Context, scope, key string, value []byte) error

	// SetMany writes all values for scope atomically.
	SetMany(ctx context.Context, scope string, values map[string][]byte) error

	Close() error
}
