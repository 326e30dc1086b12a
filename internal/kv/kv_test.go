package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "state", "kv.json")),
	}
}

func TestStore_Behaviour(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "@device_id")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "@device_id", []byte("ios-iOS-1")))
			require.NoError(t, s.Set(ctx, "@push_token", []byte("tok")))
			require.NoError(t, s.Set(ctx, "@notifications", []byte(`[{"id":"1"}]`)))

			v, err := s.Get(ctx, "@device_id")
			require.NoError(t, err)
			assert.Equal(t, "ios-iOS-1", string(v))

			require.NoError(t, s.Set(ctx, "@device_id", []byte("android-Android-2")))
			v, err = s.Get(ctx, "@device_id")
			require.NoError(t, err)
			assert.Equal(t, "android-Android-2", string(v))

			require.NoError(t, s.MultiRemove(ctx, "@device_id", "@push_token", "@missing"))
			_, err = s.Get(ctx, "@push_token")
			assert.ErrorIs(t, err, ErrNotFound)

			v, err = s.Get(ctx, "@notifications")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"1"}]`, string(v))

			require.NoError(t, s.Remove(ctx, "@notifications"))
			require.NoError(t, s.Remove(ctx, "@notifications"))
			_, err = s.Get(ctx, "@notifications")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'x'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
	out[0] = 'y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")

	require.NoError(t, NewFileStore(path).Set(ctx, "@device_id", []byte("ios-iOS-42")))

	v, err := NewFileStore(path).Get(ctx, "@device_id")
	require.NoError(t, err)
	assert.Equal(t, "ios-iOS-42", string(v))
}

func TestFileStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path)
	_, err := s.Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Set(ctx, "k", []byte("v")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw), "a failed write leaves the file untouched")
}
