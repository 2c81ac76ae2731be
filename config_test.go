package prefkit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/prefkit"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults to the memory backend", func(t *testing.T) {
		cfg, err := prefkit.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.Backend)
		assert.Empty(t, cfg.KeyPrefix)
	})

	t.Run("reads backend and prefix from the environment", func(t *testing.T) {
		t.Setenv("PREFKIT_BACKEND", "redis")
		t.Setenv("PREFKIT_KEY_PREFIX", "app1.")

		cfg, err := prefkit.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Backend)
		assert.Equal(t, "app1.", cfg.KeyPrefix)
	})
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		t.Parallel()

		st, closeStore, err := prefkit.OpenStore(ctx, prefkit.Config{Backend: "memory"}, nil)
		require.NoError(t, err)
		require.NotNil(t, st)

		require.NoError(t, st.Write(ctx, "theme", "dark"))
		v, ok, err := st.Read(ctx, "theme")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "dark", v)

		require.NoError(t, closeStore())
	})

	t.Run("empty backend means memory", func(t *testing.T) {
		t.Parallel()

		st, closeStore, err := prefkit.OpenStore(ctx, prefkit.Config{}, nil)
		require.NoError(t, err)
		require.NotNil(t, st)
		require.NoError(t, closeStore())
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Parallel()

		_, _, err := prefkit.OpenStore(ctx, prefkit.Config{Backend: "etcd"}, nil)
		require.ErrorIs(t, err, prefkit.ErrUnknownBackend)
	})
}
