// Package bridge converts a pull-based asynchronous sequence into a
// push-based, single-consumer, cancellable delivery channel.
//
// [Attach] connects a [Source] to a [Sink] and starts one goroutine that
// repeatedly pulls the next element and pushes it downstream, preserving pull
// order. There is no demand tracking and no buffering between pull and push:
// the sink is assumed to accept values synchronously, which holds for the
// infrequent-update workloads prefkit is built for.
//
// The sink reference lives behind the subscription's mutex and is cleared
// synchronously inside Cancel before the pull loop is asked to stop. This
// gives a strict guarantee: once Cancel returns, the sink observes no further
// Receive or ReceiveCompletion calls. The cost is that Cancel may briefly
// block for one in-flight delivery to complete, and a sink must never call
// Cancel from inside its own Receive.
//
// Each terminal outcome is delivered exactly once: Finished on io.EOF from
// the source, Failed on any other error. A cancellation — either through
// Cancel or a context error surfacing from the source — delivers no
// completion at all; cancellation is not an error.
package bridge
