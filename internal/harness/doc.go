// Package harness runs scripted game scenarios against the real app stack
// and checks the outcome.
//
// A scenario drives an App (session, device store, offline queue) whose
// queue dispatches to an in-process remote acceptor behind a fault
// injector. Every step is recorded in a trace; assertions check the final
// session, queue, and remote state; the trace can be compared to a golden
// file.
//
// # Scenario Format
//
//	name: lost_ack
//	description: "A dropped acknowledgement is absorbed by the idempotency key"
//	rules:
//	  mpr_percent: 10
//	  max_retries: 3
//	game:
//	  game_id: g-1
//	  opponent: Hawks
//	roster:
//	  - { id: "5", jersey: 5, eligible: true }
//	steps:
//	  - op: start
//	  - op: online
//	  - op: drop_acks
//	    count: 1
//	  - op: select
//	    players: ["5"]
//	  - op: record
//	    result: run
//	  - op: drain
//	assertions:
//	  - type: remote_plays
//	    value: 1
//
// # Step Ops
//
//   - start, end (score), restart
//   - mode (mode), select / deselect (players), clear
//   - record (result, extra), undo, quarter (quarter)
//   - online, offline, drain, retry (action), discard (action)
//   - fail_next (count), drop_acks (count), remote_down, remote_up
//
// A step may set expect_error to a substring the step's error must contain.
//
// # Determinism
//
// Timestamps come from testutil.DeterministicClock; play keys, action ids,
// and remote play ids from testutil.SequentialKeys ("key-", "act-",
// "play-"). Both databases are in memory. The same scenario always yields a
// byte-identical trace.
package harness
