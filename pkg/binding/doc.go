// Package binding ties one observed key to one bound value slot, the way a
// UI property binding would. An [Observer] owns at most one live
// subscription; calling Observe on every refresh cycle is the intended usage
// and costs nothing while the configured store stays the same.
//
// When the store identity changes between calls, the old subscription is torn
// down and a new one attached in the same critical section — the observer is
// never subscribed to two stores at once, and the slot converges to the new
// store's current value immediately via the initial snapshot delivery.
//
// Subscription failures are absorbed: the observer re-reads the value
// directly from the store instead of propagating the error, so a bound slot
// degrades to a one-shot read rather than going stale silently at the UI
// layer. A later Observe call rebuilds the live subscription.
package binding
