// Package store provides SQLite-backed durable storage for the device.
//
// The store holds two persistence records:
//   - Session record: the active game session, keyed by a fixed name
//   - Queue record: the pending offline actions and the dead-letter list
//
// # Atomic replacement
//
// Every write replaces a whole record inside one transaction; no record is
// ever partially updated. Commit can replace the session record and the queue
// record together, so a recorded play and the submission queued for it land
// in the same transaction or not at all.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: A committed play survives power loss
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
