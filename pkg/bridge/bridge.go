package bridge

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Completion is the terminal event of a subscription.
type Completion struct {
	err error
}

// Finished reports normal exhaustion of the source.
func Finished() Completion { return Completion{} }

// Failed reports a source failure.
func Failed(err error) Completion { return Completion{err: err} }

// Err returns the failure cause, or nil when the source finished normally.
func (c Completion) Err() error { return c.err }

// Source is a single-pass asynchronous pull sequence. Next blocks until the
// next element is available and returns io.EOF when the sequence is
// exhausted; a context error from ctx signals cooperative cancellation and is
// never reported downstream.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// Sink is the downstream endpoint of a subscription. A subscription pushes
// values with no demand tracking: Receive must accept the value
// synchronously. Receive and ReceiveCompletion are never invoked
// concurrently, and never again after a terminal completion or after Cancel
// on the subscription has returned.
//
// Implementations must not call Subscription.Cancel synchronously from
// inside Receive or ReceiveCompletion; cancel from another goroutine.
type Sink[T any] interface {
	Receive(value T)
	ReceiveCompletion(c Completion)
	// Request signals demand. Subscriptions push eagerly and ignore demand;
	// the method exists for downstream protocols that expect it.
	Request(n int)
}

// Subscription connects one Source to one Sink through a dedicated pull
// goroutine. Create it with [Attach]; a source must not be attached twice.
type Subscription[T any] struct {
	id     string
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	// mu guards sink. The pull goroutine delivers while holding it and
	// Cancel clears it under the same lock before requesting loop exit, so
	// after Cancel returns no further delivery can start.
	mu   sync.Mutex
	sink Sink[T]
}

// Attach starts a subscription pulling elements from source and forwarding
// them to sink in pull order. The pull loop runs on its own goroutine until
// the source terminates or Cancel is called.
//
// Termination is reported to the sink exactly once: Finished when the source
// returns io.EOF, Failed for any other non-cancellation error. Cancellation,
// whether via Cancel or via a context error out of the source, produces no
// completion at all.
func Attach[T any](source Source[T], sink Sink[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription[T]{
		id:     uuid.NewString(),
		cancel: cancel,
		done:   make(chan struct{}),
		sink:   sink,
	}
	go s.run(ctx, source)
	return s
}

// ID returns the unique subscription id.
func (s *Subscription[T]) ID() string { return s.id }

// Done is closed when the pull goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Request is accepted and has no effect.
func (s *Subscription[T]) Request(n int) {}

// Cancel detaches the sink and requests cooperative cancellation of the pull
// loop. It returns as soon as the request is recorded, without waiting for
// the loop to exit; if a delivery is in flight, Cancel waits only for that
// single delivery to finish. After Cancel returns the sink receives nothing
// further, not even a completion. Idempotent.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.sink = nil
		s.mu.Unlock()
		s.cancel()
	})
}

func (s *Subscription[T]) run(ctx context.Context, source Source[T]) {
	defer close(s.done)
	for {
		v, err := source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.complete(Finished())
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		default:
			s.complete(Failed(err))
			return
		}

		if !s.deliver(v) {
			return
		}
		// Cancellation is checked between elements, never mid-pull.
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Subscription[T]) deliver(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return false
	}
	s.sink.Receive(v)
	return true
}

func (s *Subscription[T]) complete(c Completion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == nil {
		return
	}
	s.sink.ReceiveCompletion(c)
	s.sink = nil
}
