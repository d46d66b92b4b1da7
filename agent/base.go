package agent

import (
	"fmt"

	"github.com/hupe1980/agentchat/core"
)

// BaseAgent bundles the identity and descriptive metadata shared by all
// agent implementations. Embed it in concrete agents and supply the channel
// protocol methods (ChannelKeys, CreateChannel) to satisfy core.Agent.
type BaseAgent struct {
	id          string // Stable unique identifier, generated at construction
	name        string // Human-readable name, authors produced messages
	description string // Detailed description of the agent's purpose
}

// NewBaseAgent constructs a BaseAgent with a generated identifier and a
// default description (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		id:          core.NewID(),
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Identifier returns the stable unique id of this agent instance.
func (b *BaseAgent) Identifier() string { return b.id }

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
// This is useful for providing more detailed information about the agent's
// capabilities to selection logic.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }
