// Package model provides the shared record types for huddle.
//
// This package contains type definitions plus canonical encoding only. All
// other internal packages import model; model imports nothing internal, so it
// stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - PlayEntry values are immutable once created; the player list is a copy
//   - All JSON tags use snake_case
//   - Canonical JSON (sorted keys, NFC strings, no floats) is the only input
//     to payload fingerprints
package model
