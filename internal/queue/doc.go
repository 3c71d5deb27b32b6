// Package queue implements the durable offline operation queue.
//
// The queue is a FIFO of pending remote mutations plus a dead-letter list of
// mutations that exhausted their automatic retries.
//
// # Per-action state machine
//
//	Queued --drain--> InFlight --ok--------------------------> (removed)
//	                           --error, retries < max-------> Queued (retries+1)
//	                           --error, retries == max------> Failed (dead letter)
//	Failed --Retry--> Queued (retries = 0, at the tail)
//	Failed --Discard--> (removed)
//
// An action is never in the pending list and the dead-letter list at once.
//
// # Ordering
//
// Drain dispatches strictly head to tail, one action at a time, because a
// later mutation may depend on an earlier one having applied. A failure that
// is requeued halts the pass: nothing behind it is attempted until the head
// succeeds or is dead-lettered.
//
// # Triggers
//
// Enqueue (while online), SetOnline(true), and Retry trigger a drain. When a
// worker is running (Run), the trigger signals it; otherwise the drain runs
// inline on the caller's goroutine. Either way remote failures are absorbed
// into requeue or dead-letter transitions and never returned to the caller.
//
// # Durability
//
// Every transition persists the whole pending and dead-letter lists through a
// Persister before the caller observes it.
package queue
