package store

import "context"

// Change describes a single observed mutation of one key. Old carries the
// effective value before the write and New the effective value after it.
// Observation layers built on top of a Store synthesize an initial change
// with Old == New at registration time; a Store itself only emits changes
// for actual writes.
type Change struct {
	Key string `json:"key"`
	Old string `json:"old"`
	New string `json:"new"`
}

// ObserveFunc receives changes for an observed key. Implementations of Store
// may invoke it on an arbitrary goroutine of their choosing; callers that
// need single-threaded delivery must marshal it themselves.
type ObserveFunc func(Change)

// Registration represents one active key observation on a Store.
type Registration interface {
	// Cancel deregisters the observation. It is idempotent: calling it more
	// than once, or concurrently with an in-flight notification, has no
	// additional effect. After Cancel returns, the registration holds no
	// reference to the store. One notification already being delivered when
	// Cancel is called may still arrive.
	Cancel()
}

// Store is the key-value persistence capability prefkit observes. Values are
// strings on the wire; typed access lives in the root prefkit package.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Read returns the effective value for key: the written value if one
	// exists, otherwise the registered default. The boolean reports whether
	// either was present.
	Read(ctx context.Context, key string) (string, bool, error)

	// Write stores value under key and notifies observers of key with the
	// previous and new effective values.
	Write(ctx context.Context, key, value string) error

	// Delete removes the written value for key, uncovering the registered
	// default if any. Observers are notified with the value that was removed
	// and the effective value after removal.
	Delete(ctx context.Context, key string) error

	// Observe registers onChange for changes to key. Notifications are
	// delivered in write order per key; no coalescing is performed.
	Observe(key string, onChange ObserveFunc) (Registration, error)

	// RegisterDefaults merges defaults into the store's default layer.
	// Defaults are visible to Read but are not persisted as writes and emit
	// no change notifications.
	RegisterDefaults(defaults map[string]string) error
}
