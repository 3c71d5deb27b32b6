// Package session implements the active game session state machine.
//
// A Session holds the operator's live view of one game: the roster snapshot,
// the current mode and quarter, the transient player selection, and the
// ordered play history.
//
// # Event-log fold
//
// The play history is the only durable fact. Participation counts and the
// current play number are never stored as counters; they are recomputed by
// folding the history:
//
//	PlayNumber()       == len(history) + 1
//	Participation()[p] == count of offense entries whose Players include p
//
// Undo pops the tail entry and nothing else, so the counts stay consistent
// by construction and no increment/decrement pairing has to be maintained.
//
// Session performs no I/O and is not safe for concurrent use. The owning
// application serializes access and persists a Snapshot after every mutation.
package session
