// Package store defines the key-value persistence capability observed by
// prefkit and ships three backends: in-memory, redis, and postgres.
//
// The interface is deliberately small: Read, Write, Delete, Observe, and
// RegisterDefaults. Values are strings on the wire; typed access is layered
// on top by the root prefkit package. Observe is the raw, native notification
// facility — it emits a [Change] for every actual write, with no initial
// delivery and no coalescing. Higher layers (pkg/observe) add the initial
// snapshot delivery and pull-sequence adaptation.
//
// # Backends
//
//   - [MemoryStore] — process-local map with a dispatch goroutine that
//     delivers notifications in write order. Default backend; the usual
//     choice for tests and for swapping in as a test double.
//   - [RedisStore] — values in redis strings, change events fanned out over
//     a pub/sub channel so multiple processes observe each other's writes.
//   - [PostgresStore] — values in a single table, change events propagated
//     via LISTEN/NOTIFY issued inside the writing transaction.
//
// # Usage
//
//	st := store.NewMemoryStore()
//	defer st.Close()
//
//	_ = st.RegisterDefaults(map[string]string{"theme": "light"})
//
//	reg, err := st.Observe("theme", func(c store.Change) {
//		log.Printf("theme: %q -> %q", c.Old, c.New)
//	})
//	if err != nil {
//		// handle error
//	}
//	defer reg.Cancel()
//
//	_ = st.Write(ctx, "theme", "dark")
//
// # Concurrency
//
// All backends are safe for concurrent use. Change callbacks are invoked on
// a goroutine owned by the store; which one is an implementation detail.
// Cancel on a registration is idempotent and may race with one in-flight
// delivery: a callback already being invoked when Cancel is called can still
// complete. Callers needing a strict no-delivery-after-cancel guarantee
// should use the bridge package, which provides it.
//
// # Defaults
//
// RegisterDefaults installs a process-local fallback layer consulted by Read
// when no written value exists. Defaults never generate change notifications
// and, for the redis and postgres backends, are not persisted remotely.
package store
