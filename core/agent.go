package core

import "context"

// Agent is a participant in a shared conversation. An agent instance may take
// part in one or more chats; a chat may include one or more agents.
//
// Beyond identity and descriptive metadata an agent must define its
// communication protocol by producing an AgentChannel. Agents that are
// behaviorally interchangeable (same family + configuration) should expose
// identical ChannelKeys so they share a single channel instance within a chat.
type Agent interface {
	// Identifier returns the stable unique id of this agent instance.
	Identifier() string

	// Name returns the human-readable agent name used to author messages.
	Name() string

	// Description explains the agent's purpose to selection logic and humans.
	Description() string

	// ChannelKeys returns the ordered discriminator keys that determine which
	// channel instance this agent binds to. The sequence must be stable for
	// the lifetime of the agent; ordering is significant.
	ChannelKeys() []string

	// CreateChannel constructs the channel variant this agent family
	// communicates through. Called at most once per distinct key set per chat.
	CreateChannel(ctx context.Context) (AgentChannel, error)
}

// AgentChannel adapts the shared conversation into an agent-family-specific
// representation. Implementations may buffer, translate or reorder messages
// relative to the authoritative history; the chat orchestrator guarantees a
// channel is fully caught up before it is read or invoked through.
//
// Implementations must:
//   - Respect context cancellation at every blocking point
//   - Never mutate messages handed to Receive (they are defensive copies,
//     but sharing them onward requires the same care)
//   - Deliver Invoke results incrementally and close both channels when done
type AgentChannel interface {
	// Receive ingests conversation messages that were produced outside this
	// channel. It is called once with the full accumulated history right
	// after creation (when non-empty), then with each broadcast batch.
	Receive(ctx context.Context, messages []Message) error

	// Invoke performs a discrete incremental interaction between the agent
	// and the conversation. Produced messages stream on the first channel;
	// a terminal failure arrives on the second (buffered, size 1). Both are
	// closed when the interaction completes.
	Invoke(ctx context.Context, agent Agent) (<-chan Message, <-chan error)

	// History streams the channel's own view of the conversation, newest
	// first. The stream is closed after the last message or when ctx is
	// cancelled.
	History(ctx context.Context) <-chan Message
}
