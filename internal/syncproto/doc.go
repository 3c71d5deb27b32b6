// Package syncproto defines the wire payloads that carry local mutations to
// the remote store and routes queued actions to a Remote.
//
// Every recorded play is submitted as a PlaySubmission carrying the
// idempotency key generated when the play was recorded. The key never
// changes across retries, so a submission that reached the remote but whose
// response was lost is answered with the original record (Idempotent=true)
// instead of creating a second play.
//
// Routing:
//
//	CREATE play  -> Remote.SubmitPlay
//	DELETE play  -> Remote.DeletePlay   (undo; addressed by key)
//	UPDATE game  -> Remote.UpdateGame   (quarter change, final score)
package syncproto
