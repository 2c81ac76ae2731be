package observe

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Option configures an observation.
type Option func(*config)

type config struct {
	log    *slog.Logger
	buffer int
}

// WithLogger sets the logger used for dropped or mismatched notifications.
// Defaults to slog.Default(). Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBuffer sets the buffer size of a [Sequence] created by [Events].
// Values below 1 are ignored. Defaults to 16.
func WithBuffer(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.buffer = n
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{log: slog.Default(), buffer: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Handle represents one active key observation created by [Observe].
type Handle struct {
	once sync.Once
	mu   sync.Mutex
	reg  store.Registration
}

// Observe registers onChange for changes to key on st and immediately
// delivers the current state once as Change{Old: cur, New: cur}, so callers
// never have to special-case "no notification yet". Subsequent deliveries
// carry the actual (old, new) pair for each write, in write order.
//
// Notifications whose Key does not match the registered key indicate a
// misbehaving store; they are logged and dropped rather than forwarded.
//
// onChange may be invoked on an arbitrary goroutine and may race with a
// concurrent Cancel: one delivery already in flight when Cancel is called can
// still arrive. This is a documented bound, not a defect; the bridge package
// provides the strict guarantee where it matters.
func Observe(ctx context.Context, st store.Store, key string, onChange store.ObserveFunc, opts ...Option) (*Handle, error) {
	if key == "" {
		return nil, store.ErrEmptyKey
	}
	cfg := newConfig(opts)

	reg, err := st.Observe(key, func(c store.Change) {
		if c.Key != key {
			cfg.log.Warn("prefkit: ignoring change notification for mismatched key",
				slog.String("want", key),
				slog.String("got", c.Key))
			return
		}
		onChange(c)
	})
	if err != nil {
		return nil, err
	}

	cur, _, err := st.Read(ctx, key)
	if err != nil {
		reg.Cancel()
		return nil, err
	}
	onChange(store.Change{Key: key, Old: cur, New: cur})

	return &Handle{reg: reg}, nil
}

// Cancel deregisters the observation from the store exactly once and clears
// the store reference, leaving the handle inert. Safe to call multiple times
// or concurrently with an in-flight delivery.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.mu.Lock()
		reg := h.reg
		h.reg = nil
		h.mu.Unlock()
		reg.Cancel()
	})
}
