// Package app is the application context: it owns one game session, the
// device store, and the offline queue, and exposes the operator's
// operations on them.
//
// Every mutation follows the same shape:
//
//  1. snapshot the session
//  2. apply the change in memory
//  3. commit the session record, plus any outbound action, in one store
//     transaction
//  4. on commit failure, restore the snapshot
//
// So memory and disk never disagree about whether a play happened, and a
// recorded play is never persisted without its CREATE action (or vice versa).
//
// An App is safe for concurrent use. Operations are serialized; the queue
// worker may drain concurrently but never observes a half-applied mutation.
package app
