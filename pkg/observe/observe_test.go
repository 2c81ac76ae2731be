package observe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/prefkit/pkg/observe"
	"github.com/dmitrymomot/prefkit/pkg/store"
)

func waitChange(t *testing.T, ch <-chan store.Change) store.Change {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
		return store.Change{}
	}
}

func assertNoChange(t *testing.T, ch <-chan store.Change) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change notification: %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

// misreportingStore corrupts the key on every notification, modeling a store
// whose native mechanism cannot be trusted.
type misreportingStore struct {
	*store.MemoryStore
}

func (m *misreportingStore) Observe(key string, fn store.ObserveFunc) (store.Registration, error) {
	return m.MemoryStore.Observe(key, func(c store.Change) {
		c.Key = "bogus"
		fn(c)
	})
}

func TestObserve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()

		_, err := observe.Observe(ctx, s, "", func(store.Change) {})
		require.ErrorIs(t, err, store.ErrEmptyKey)
	})

	t.Run("initial snapshot carries current value twice", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "count", "0"))

		ch := make(chan store.Change, 10)
		h, err := observe.Observe(ctx, s, "count", func(c store.Change) { ch <- c })
		require.NoError(t, err)
		defer h.Cancel()

		c := waitChange(t, ch)
		assert.Equal(t, store.Change{Key: "count", Old: "0", New: "0"}, c)
	})

	t.Run("initial snapshot for absent key is empty", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()

		ch := make(chan store.Change, 10)
		h, err := observe.Observe(ctx, s, "count", func(c store.Change) { ch <- c })
		require.NoError(t, err)
		defer h.Cancel()

		c := waitChange(t, ch)
		assert.Equal(t, store.Change{Key: "count", Old: "", New: ""}, c)
	})

	t.Run("writes observed after cancel are not delivered", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "count", "0"))

		ch := make(chan store.Change, 10)
		h, err := observe.Observe(ctx, s, "count", func(c store.Change) { ch <- c })
		require.NoError(t, err)

		assert.Equal(t, store.Change{Key: "count", Old: "0", New: "0"}, waitChange(t, ch))

		require.NoError(t, s.Write(ctx, "count", "5"))
		assert.Equal(t, store.Change{Key: "count", Old: "0", New: "5"}, waitChange(t, ch))

		h.Cancel()

		require.NoError(t, s.Write(ctx, "count", "9"))
		assertNoChange(t, ch)
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()

		h, err := observe.Observe(ctx, s, "count", func(store.Change) {})
		require.NoError(t, err)

		h.Cancel()
		assert.NotPanics(t, func() { h.Cancel() })
	})

	t.Run("mismatched key notifications are dropped", func(t *testing.T) {
		t.Parallel()

		s := &misreportingStore{MemoryStore: store.NewMemoryStore()}
		defer s.Close()

		ch := make(chan store.Change, 10)
		h, err := observe.Observe(ctx, s, "count", func(c store.Change) { ch <- c })
		require.NoError(t, err)
		defer h.Cancel()

		// The initial snapshot is synthesized by the adapter itself and is
		// unaffected by the store's misreporting.
		assert.Equal(t, "count", waitChange(t, ch).Key)

		require.NoError(t, s.Write(ctx, "count", "5"))
		assertNoChange(t, ch)
	})
}
