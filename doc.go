// Package prefkit provides typed, observable access to key-value preference
// stores.
//
// PrefKit replaces ad-hoc settings plumbing with three layers: a small store
// capability with in-memory, redis, and postgres backends; a change
// observation pipeline that turns the store's native notifications into
// cancellable handles, pull sequences, and push subscriptions; and a typed
// key surface where preferences are declared once as plain data.
//
// Key Features:
//
//   - Typed keys using generics, declared as (name, default, codec) triples
//   - Per-key change observation with an initial snapshot delivery
//   - Single-consumer push subscriptions with strict cancellation semantics
//   - Binding observers that keep a UI value slot in sync across store swaps
//   - Runtime store swapping through a lock-guarded container
//
// Basic Usage:
//
//	// Declare keys once, at package level
//	var (
//		Theme  = prefkit.Key[string]{Name: "theme", Default: "light"}
//		Volume = prefkit.Key[int]{Name: "volume", Default: 5}
//	)
//
//	// Read and write through the default container
//	theme, _ := Theme.Get(ctx, nil)
//	_ = Volume.Set(ctx, nil, 7)
//
//	// Observe typed changes; the first delivery is the current value
//	h, _ := Theme.Observe(ctx, nil, func(old, new string) {
//		log.Printf("theme: %q -> %q", old, new)
//	})
//	defer h.Cancel()
//
// Swapping the backing store at runtime — for tests, or to move from the
// in-memory default to redis or postgres — goes through the container:
//
//	cfg, _ := prefkit.LoadConfig()
//	st, closeStore, _ := prefkit.OpenStore(ctx, cfg, nil)
//	defer closeStore()
//	prefkit.Default.Configure(st)
//
// The lower-level building blocks live in their own packages: pkg/store for
// the persistence capability and backends, pkg/observe for the notification
// adapter and pull sequences, pkg/bridge for pull-to-push subscriptions, and
// pkg/binding for slot-synchronizing observers.
package prefkit
