// Package core provides the foundational domain types and collaborator
// interfaces used by AgentChat. It defines the core abstractions for:
//
//   - Messages (immutable role-based conversational records built from parts)
//   - Agents (conversation participants exposing identity + channel protocol)
//   - AgentChannels (per-agent-family adapters over the shared conversation)
//
// The package intentionally keeps implementation concerns (orchestration,
// broadcasting, concrete channels, model connectors) out of scope, exposing
// small interfaces so each agent family can supply its own channel variant
// while the coordination layer treats all variants uniformly.
package core
