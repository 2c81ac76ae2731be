package observe

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Sequence adapts a key observation into a single-pass asynchronous pull
// sequence. Elements are pulled with Next in the order the store produced
// them; the sequence ends with io.EOF once Close is called.
//
// A Sequence is single-consumer: exactly one goroutine may call Next.
type Sequence struct {
	key string
	log *slog.Logger

	ch     chan store.Change
	handle *Handle

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// Events observes key on st and returns the changes as a [Sequence]. The
// first element is always the initial snapshot Change{Old: cur, New: cur}.
//
// The sequence buffers up to WithBuffer elements between the store's
// notification goroutine and the consumer; if the consumer falls that far
// behind, further changes are logged and dropped until it catches up.
// Updates are expected to be infrequent relative to consumption, so the
// buffer is a safety margin, not a flow-control mechanism.
func Events(ctx context.Context, st store.Store, key string, opts ...Option) (*Sequence, error) {
	cfg := newConfig(opts)
	s := &Sequence{
		key: key,
		log: cfg.log,
		ch:  make(chan store.Change, cfg.buffer),
	}

	handle, err := Observe(ctx, st, key, s.push, opts...)
	if err != nil {
		return nil, err
	}
	s.handle = handle
	return s, nil
}

// Next blocks until the next change is available, the sequence is closed, or
// ctx is cancelled. It returns io.EOF after the sequence is closed and all
// buffered changes have been consumed, and ctx.Err() on cancellation.
func (s *Sequence) Next(ctx context.Context) (store.Change, error) {
	select {
	case c, ok := <-s.ch:
		if !ok {
			return store.Change{}, io.EOF
		}
		return c, nil
	case <-ctx.Done():
		return store.Change{}, ctx.Err()
	}
}

// Close cancels the underlying observation and ends the sequence. Changes
// already buffered remain consumable via Next before io.EOF is returned.
// Safe to call multiple times.
func (s *Sequence) Close() error {
	s.once.Do(func() {
		s.handle.Cancel()
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return nil
}

func (s *Sequence) push(c store.Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- c:
	default:
		s.log.Warn("prefkit: dropping change for slow sequence consumer",
			slog.String("key", s.key))
	}
}
