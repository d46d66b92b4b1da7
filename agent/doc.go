// Package agent provides concrete core.Agent implementations.
//
// BaseAgent bundles the identity concerns (generated id, name, description)
// shared by all agents. ChatAgent is a complete model-backed agent of the
// chat-history family: it converses through a channel.ChatHistoryChannel and
// drives a model.Model to produce its turns.
//
// Agents of the same family with identical configuration expose identical
// channel keys and therefore share a single channel instance within a chat.
package agent
