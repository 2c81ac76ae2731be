// Package observe turns a store's raw per-key change notifications into two
// friendlier shapes: a normalized callback with an explicit cancellable
// handle ([Observe]), and a single-pass asynchronous pull sequence
// ([Events]).
//
// Both shapes add the initial snapshot delivery the raw store facility lacks:
// the first notification always carries the current value as both Old and
// New, delivered once at registration time. Consumers therefore never have to
// special-case "no notification yet".
//
// # Cancellation
//
// Handle.Cancel and Sequence.Close are idempotent and safe from finalizer or
// teardown paths. Cancellation is best-effort with respect to an in-flight
// delivery: one notification already being dispatched when Cancel is called
// may still arrive. Consumers that require strictly zero deliveries after
// cancellation should attach the sequence to a bridge.Subscription, which
// clears its downstream reference under a lock before cancelling.
//
// # Hardening
//
// A notification arriving for a key other than the registered one means the
// backing store misreported. Rather than treating the store as trusted and
// crashing, the adapter logs the mismatch and drops the notification.
package observe
