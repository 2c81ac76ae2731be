package binding_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/prefkit/pkg/binding"
	"github.com/dmitrymomot/prefkit/pkg/store"
)

// slot is a concurrency-safe stand-in for a bound UI value.
type slot struct {
	mu   sync.Mutex
	v    string
	sets int
}

func (s *slot) set(v string) {
	s.mu.Lock()
	s.v = v
	s.sets++
	s.mu.Unlock()
}

func (s *slot) get() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, s.sets
}

func (s *slot) eventually(t *testing.T, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, _ := s.get()
		return v == want
	}, time.Second, time.Millisecond, "slot never reached %q", want)
}

func identity(raw string) (string, error) { return raw, nil }

func TestObserver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("slot receives current value on subscribe", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "theme", "dark"))

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, s))
		sl.eventually(t, "dark")
	})

	t.Run("slot follows writes", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, s))
		require.NoError(t, s.Write(ctx, "theme", "dark"))
		sl.eventually(t, "dark")

		require.NoError(t, s.Write(ctx, "theme", "sepia"))
		sl.eventually(t, "sepia")
	})

	t.Run("repeated observe of the same store is a no-op", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "theme", "dark"))

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, s))
		sl.eventually(t, "dark")

		_, before := sl.get()
		require.NoError(t, o.Observe(ctx, s))
		require.NoError(t, o.Observe(ctx, s))

		time.Sleep(50 * time.Millisecond)
		_, after := sl.get()
		assert.Equal(t, before, after, "re-observing must not resubscribe or redeliver")
	})

	t.Run("store swap rebinds the slot", func(t *testing.T) {
		t.Parallel()

		a := store.NewMemoryStore()
		defer a.Close()
		b := store.NewMemoryStore()
		defer b.Close()

		require.NoError(t, a.Write(ctx, "theme", "x"))
		require.NoError(t, b.Write(ctx, "theme", "y"))

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, a))
		sl.eventually(t, "x")

		require.NoError(t, o.Observe(ctx, b))
		sl.eventually(t, "y")

		// The old store's writes must no longer reach the slot.
		require.NoError(t, a.Write(ctx, "theme", "stale"))
		time.Sleep(50 * time.Millisecond)
		v, _ := sl.get()
		assert.Equal(t, "y", v)

		// The new store's writes must.
		require.NoError(t, b.Write(ctx, "theme", "fresh"))
		sl.eventually(t, "fresh")
	})

	t.Run("cancel stops updates and is idempotent", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)

		require.NoError(t, o.Observe(ctx, s))
		require.NoError(t, s.Write(ctx, "theme", "dark"))
		sl.eventually(t, "dark")

		o.Cancel()
		o.Cancel()

		require.NoError(t, s.Write(ctx, "theme", "light"))
		time.Sleep(50 * time.Millisecond)
		v, _ := sl.get()
		assert.Equal(t, "dark", v)
	})

	t.Run("cancel without subscription is safe", func(t *testing.T) {
		t.Parallel()

		o := binding.NewObserver("theme", identity, func(string) {})
		assert.NotPanics(t, o.Cancel)
	})

	t.Run("observe after cancel resubscribes", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "theme", "dark"))

		sl := &slot{}
		o := binding.NewObserver("theme", identity, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, s))
		sl.eventually(t, "dark")

		o.Cancel()

		require.NoError(t, s.Write(ctx, "theme", "light"))
		require.NoError(t, o.Observe(ctx, s))
		sl.eventually(t, "light")
	})

	t.Run("undecodable values are skipped", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "volume", "7"))

		sl := &slot{}
		strict := func(raw string) (string, error) {
			if raw == "loud" {
				return "", assert.AnError
			}
			return raw, nil
		}
		o := binding.NewObserver("volume", strict, sl.set)
		defer o.Cancel()

		require.NoError(t, o.Observe(ctx, s))
		sl.eventually(t, "7")

		require.NoError(t, s.Write(ctx, "volume", "loud"))
		require.NoError(t, s.Write(ctx, "volume", "8"))
		sl.eventually(t, "8")
	})
}
