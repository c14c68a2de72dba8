package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageImplementations(t *testing.T) {
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for name, s := range map[string]Storage{
		"local":  local,
		"memory": NewMemoryStorage(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			exists, err := s.Exists(ctx, "tasks/t1.yaml")
			require.NoError(t, err)
			assert.False(t, exists)

			_, err = s.Read(ctx, "tasks/t1.yaml")
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, s.Write(ctx, "tasks/t2.yaml", []byte("b")))
			require.NoError(t, s.Write(ctx, "tasks/t1.yaml", []byte("a")))
			require.NoError(t, s.Write(ctx, "agents/1.yaml", []byte("agent")))

			data, err := s.Read(ctx, "tasks/t1.yaml")
			require.NoError(t, err)
			assert.Equal(t, "a", string(data))

			paths, err := s.List(ctx, "tasks")
			require.NoError(t, err)
			assert.Equal(t, []string{"tasks/t1.yaml", "tasks/t2.yaml"}, paths)

			require.NoError(t, s.Delete(ctx, "tasks/t1.yaml"))
			err = s.Delete(ctx, "tasks/t1.yaml")
			assert.True(t, errors.Is(err, ErrNotFound))

			paths, err = s.List(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, paths)
		})
	}
}

func TestLocalStorage_ResolveStaysUnderBase(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "../escape.yaml", []byte("x")))
	exists, err := s.Exists(context.Background(), "escape.yaml")
	require.NoError(t, err)
	assert.True(t, exists)
}
