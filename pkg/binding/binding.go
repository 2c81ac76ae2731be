package binding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/prefkit/pkg/bridge"
	"github.com/dmitrymomot/prefkit/pkg/observe"
	"github.com/dmitrymomot/prefkit/pkg/store"
)

// Option configures an Observer.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the logger used for decode failures and fallback reads.
// Defaults to slog.Default(). Nil loggers are ignored.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// Observer keeps one bound value slot in sync with a single key. It holds at
// most one live subscription at any instant and rebuilds it when the store it
// is asked to observe changes identity.
//
// The slot is represented by a setter; it is invoked from the subscription's
// delivery goroutine, one call at a time, so the slot needs no synchronization
// of its own.
type Observer[T any] struct {
	key    string
	decode func(string) (T, error)
	set    func(T)
	log    *slog.Logger

	mu  sync.Mutex
	st  store.Store // identity the live subscription was built against
	seq *observe.Sequence
	sub *bridge.Subscription[store.Change]
}

// NewObserver creates an observer for key. decode converts the store's wire
// value into T; set writes the decoded value into the bound slot. No
// subscription exists until Observe is called.
func NewObserver[T any](key string, decode func(string) (T, error), set func(T), opts ...Option) *Observer[T] {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Observer[T]{
		key:    key,
		decode: decode,
		set:    set,
		log:    o.log,
	}
}

// Observe ensures a live subscription against st. It is cheap and idempotent
// to call on every refresh cycle: when a live subscription against the same
// store already exists it does nothing. When st differs from the store the
// current subscription was built against — or the subscription has terminated
// — the old one is torn down first and a fresh one attached immediately, so
// there are never two live subscriptions for one observer.
//
// The first delivery after (re)subscribing is the store's current value, so
// the slot converges to the new store's state right away.
func (o *Observer[T]) Observe(ctx context.Context, st store.Store) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sub != nil && o.st == st {
		select {
		case <-o.sub.Done():
			// Terminated subscription; rebuild against the same store.
		default:
			return nil
		}
	}

	o.teardownLocked()

	seq, err := observe.Events(ctx, st, o.key, observe.WithLogger(o.log))
	if err != nil {
		return err
	}
	o.seq = seq
	o.st = st
	o.sub = bridge.Attach[store.Change](seq, &slotSink[T]{o: o, st: st})
	return nil
}

// Cancel tears down the live subscription, if any. Safe to call repeatedly
// and when nothing is subscribed.
func (o *Observer[T]) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.teardownLocked()
}

func (o *Observer[T]) teardownLocked() {
	if o.sub != nil {
		o.sub.Cancel()
		o.sub = nil
	}
	if o.seq != nil {
		_ = o.seq.Close()
		o.seq = nil
	}
	o.st = nil
}

func (o *Observer[T]) apply(raw string) {
	v, err := o.decode(raw)
	if err != nil {
		o.log.Warn("prefkit: skipping undecodable value",
			slog.String("key", o.key),
			slog.String("error", err.Error()))
		return
	}
	o.set(v)
}

// slotSink forwards delivered changes into the observer's slot. On a failed
// completion it falls back to reading the store directly rather than leaving
// the slot stale or surfacing the error to the binding's owner.
type slotSink[T any] struct {
	o  *Observer[T]
	st store.Store
}

func (s *slotSink[T]) Receive(c store.Change) {
	s.o.apply(c.New)
}

func (s *slotSink[T]) ReceiveCompletion(c bridge.Completion) {
	if c.Err() == nil {
		return
	}

	s.o.log.Warn("prefkit: subscription failed, falling back to direct read",
		slog.String("key", s.o.key),
		slog.String("error", c.Err().Error()))

	v, ok, err := s.st.Read(context.Background(), s.o.key)
	if err != nil || !ok {
		return
	}
	s.o.apply(v)
}

func (s *slotSink[T]) Request(int) {}
