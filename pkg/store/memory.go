package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store]. It is the default
// backend when nothing else is configured and the usual choice for tests.
//
// Change notifications are delivered from a store-owned dispatch goroutine,
// one change at a time, in write order. From the observer's point of view the
// delivery goroutine is unspecified; consumers that need a fixed execution
// context must marshal the callback themselves.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	defaults map[string]string
	closed   bool

	observers *registry

	events chan Change
	quit   chan struct{}
	done   chan struct{}
}

// NewMemoryStore creates a ready-to-use in-memory store. Call Close when the
// store is no longer needed to stop its dispatch goroutine.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		values:    make(map[string]string),
		defaults:  make(map[string]string),
		observers: newRegistry(),
		events:    make(chan Change, 256),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// Read returns the effective value for key.
func (s *MemoryStore) Read(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.effectiveLocked(key)
	return v, ok, nil
}

// Write stores value under key and queues a change notification carrying the
// previous and new effective values.
func (s *MemoryStore) Write(ctx context.Context, key, value string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old, _ := s.effectiveLocked(key)
	s.values[key] = value
	// Queue while holding the lock so concurrent writers cannot reorder
	// notifications relative to the value they installed.
	s.events <- Change{Key: key, Old: old, New: value}
	s.mu.Unlock()
	return nil
}

// Delete removes the written value for key, uncovering the registered default
// if any. A notification is queued only if a written value actually existed.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old, existed := s.values[key]
	if existed {
		delete(s.values, key)
		s.events <- Change{Key: key, Old: old, New: s.defaults[key]}
	}
	s.mu.Unlock()
	return nil
}

// Observe registers onChange for changes to key.
func (s *MemoryStore) Observe(key string, onChange ObserveFunc) (Registration, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	return s.observers.add(key, onChange), nil
}

// RegisterDefaults merges defaults into the store's default layer.
func (s *MemoryStore) RegisterDefaults(defaults map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for k, v := range defaults {
		s.defaults[k] = v
	}
	return nil
}

// Close stops the dispatch goroutine and rejects further writes. It is safe
// to call multiple times. Notifications still queued when Close is called are
// dropped.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	<-s.done
	return nil
}

func (s *MemoryStore) effectiveLocked(key string) (string, bool) {
	if v, ok := s.values[key]; ok {
		return v, true
	}
	if v, ok := s.defaults[key]; ok {
		return v, true
	}
	return "", false
}

func (s *MemoryStore) dispatch() {
	defer close(s.done)
	for {
		select {
		case c := <-s.events:
			s.observers.deliver(c)
		case <-s.quit:
			return
		}
	}
}
