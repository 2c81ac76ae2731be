package binding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/prefkit/pkg/bridge"
	"github.com/dmitrymomot/prefkit/pkg/store"
)

// The memory and redis store sequences never fail mid-stream, so the failure
// recovery path is exercised white-box by driving the sink directly.
func TestSlotSink_FailureFallsBackToDirectRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("failed completion re-reads the store", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "theme", "dark"))

		var got string
		o := NewObserver("theme", func(raw string) (string, error) { return raw, nil }, func(v string) { got = v })

		sink := &slotSink[string]{o: o, st: s}
		sink.ReceiveCompletion(bridge.Failed(errors.New("listener lost")))

		assert.Equal(t, "dark", got, "slot must be refreshed from the store, not left stale")
	})

	t.Run("finished completion leaves the slot untouched", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		defer s.Close()
		require.NoError(t, s.Write(ctx, "theme", "dark"))

		got := "unset"
		o := NewObserver("theme", func(raw string) (string, error) { return raw, nil }, func(v string) { got = v })

		sink := &slotSink[string]{o: o, st: s}
		sink.ReceiveCompletion(bridge.Finished())

		assert.Equal(t, "unset", got)
	})

	t.Run("fallback read failure is absorbed", func(t *testing.T) {
		t.Parallel()

		s := store.NewMemoryStore()
		require.NoError(t, s.Close())

		o := NewObserver("theme", func(raw string) (string, error) { return raw, nil }, func(string) {
			t.Fatal("slot must not be written when the fallback read fails")
		})

		sink := &slotSink[string]{o: o, st: failingReader{}}
		assert.NotPanics(t, func() {
			sink.ReceiveCompletion(bridge.Failed(errors.New("listener lost")))
		})
	})
}

type failingReader struct{}

func (failingReader) Read(context.Context, string) (string, bool, error) {
	return "", false, errors.New("read failed")
}
func (failingReader) Write(context.Context, string, string) error { return nil }
func (failingReader) Delete(context.Context, string) error        { return nil }
func (failingReader) Observe(string, store.ObserveFunc) (store.Registration, error) {
	return nil, errors.New("unsupported")
}
func (failingReader) RegisterDefaults(map[string]string) error { return nil }
