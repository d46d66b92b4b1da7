// Package chat implements the conversation orchestrator and its
// channel-synchronization subsystem. A Chat owns the authoritative message
// history of a multi-agent conversation and keeps every agent channel
// eventually consistent with it:
//
//   - Public operations are serialized by a fail-fast activity flag; a second
//     concurrent call returns ErrChatBusy instead of blocking.
//   - Messages appended to the history are broadcast to all other channels
//     asynchronously through a per-channel FIFO queue; the caller never waits
//     for delivery.
//   - Before a channel is read or invoked through, a synchronization barrier
//     drains every broadcast still pending for that channel, so an agent can
//     never observe stale context.
//
// Channels are created lazily: agents sharing identical discriminator keys
// (hashed by GenerateHash) share one channel instance, which is primed with
// the full accumulated history exactly once at creation.
//
// GroupChat builds multi-turn conversations on top of Chat using pluggable
// selection and termination strategies.
package chat
