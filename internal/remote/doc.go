// Package remote is the remote side of the idempotent play protocol: an
// acceptor that applies submissions at most once per idempotency key, an
// HTTP server exposing it, and the HTTP client the device uses to reach it.
//
// Acceptance rules:
//
//   - The first submission for a key creates the play.
//   - A later submission with the same key and the same payload returns the
//     original record with Idempotent=true. This is a success.
//   - A later submission with the same key but a different payload is
//     rejected with ErrKeyConflict.
//   - Deleting a key that has not arrived yet leaves a tombstone, so a late
//     CREATE for that key is absorbed instead of resurrecting the play.
package remote
