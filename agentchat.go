// Package agentchat provides a high-level façade over the chat orchestration
// core, enabling rapid construction of multi-agent conversations. Most
// applications interact with this package by:
//  1. Creating a Chat via New() or a GroupChat via NewGroupChat()
//  2. Adding user messages (AddMessages) and invoking agents (InvokeAgent /
//     Invoke) while every agent's channel stays consistent with the shared
//     history
//  3. Reading the conversation back, globally or through a specific agent's
//     channel view
//
// The façade delegates all coordination to chat.Chat while keeping setup
// ergonomics concise. Defaults are safe for local development and testing;
// production deployments typically supply a structured logger.
package agentchat

import (
	"github.com/hupe1980/agentchat/chat"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// Options configures chat construction.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// VisibilityFilter selects which agent-produced messages surface to
	// callers. The authoritative history always receives everything.
	VisibilityFilter chat.VisibilityFilter

	// Selection picks the next agent for group chat turns (group chats only).
	Selection chat.SelectionStrategy

	// Termination decides when a group conversation is complete (group chats only).
	Termination *chat.TerminationStrategy
}

// New creates a single-conversation chat orchestrator.
func New(optFns ...func(o *Options)) *chat.Chat {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return chat.New(func(o *chat.Options) {
		o.Logger = opts.Logger
		o.VisibilityFilter = opts.VisibilityFilter
	})
}

// NewGroupChat creates a multi-turn chat between the given agents.
func NewGroupChat(agents []core.Agent, optFns ...func(o *Options)) *chat.GroupChat {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return chat.NewGroupChat(agents, func(o *chat.GroupChatOptions) {
		o.Logger = opts.Logger
		o.VisibilityFilter = opts.VisibilityFilter
		o.Selection = opts.Selection
		o.Termination = opts.Termination
	})
}
