package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_MissingKeyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			value, ok, err := store.Get(ctx, "client-1", KeyTheme)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, value)
		})
	}
}

func TestStore_SetGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "client-1", KeyQuizScoreTotal, []byte("3")))
			require.NoError(t, store.Set(ctx, "client-1", KeyQuizScoreTotal, []byte("4")))

			value, ok, err := store.Get(ctx, "client-1", KeyQuizScoreTotal)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "4", string(value))
		})
	}
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Set(ctx, "a", KeyTheme, []byte(`"dark"`)))

			_, ok, err := store.Get(ctx, "b", KeyTheme)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_SetMany(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SetMany(ctx, "a", map[string][]byte{
				KeyQuizScoreCorrect: []byte("2"),
				KeyQuizScoreTotal:   []byte("5"),
			}))

			correct, _, err := store.Get(ctx, "a", KeyQuizScoreCorrect)
			require.NoError(t, err)
			total, _, err := store.Get(ctx, "a", KeyQuizScoreTotal)
			require.NoError(t, err)
			assert.Equal(t, "2", string(correct))
			assert.Equal(t, "5", string(total))
		})
	}
}

func TestStore_RejectsUnknownKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Get(ctx, "a", "password")
			assert.ErrorIs(t, err, ErrUnknownKey)

			err = store.SetMany(ctx, "a", map[string][]byte{
				KeyTheme:  []byte(`"dark"`),
				"unknown": []byte("1"),
			})
			assert.ErrorIs(t, err, ErrUnknownKey)

			// nothing from a rejected batch is written
			_, ok, err := store.Get(ctx, "a", KeyTheme)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "a", KeyTheme, []byte(`"dark"`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "a", KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"dark"`, string(value))
}
