// Package events defines the typed session event contract.
//
// Event kinds are grouped by namespace:
//
//   - transcript.*: caller and agent speech turned into text. Deltas are
//     append-only stream pieces; finals are terminal for the utterance.
//   - tool_call.*: the lifecycle of a model-initiated tool invocation,
//     correlated by id from announcement through streamed argument deltas
//     to completion or failure.
//   - response.*: the gateway's generation lifecycle for one agent reply.
//   - speech.*: voice-activity boundaries for the caller.
//   - session.*: session state transitions and terminal transport errors.
//   - slots.*: availability results surfaced to observers.
//
// Gateway event types that have no mapping here are dropped at the gateway
// boundary; this package only ever sees known kinds.
package events
