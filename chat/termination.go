package chat

import (
	"context"

	"github.com/hupe1980/agentchat/core"
)

// TerminationCondition reports whether the conversation should complete after
// the given agent's turn, based on the authoritative history.
type TerminationCondition func(ctx context.Context, agent core.Agent, history []core.Message) (bool, error)

// TerminationStrategy decides when a group conversation is complete.
// The zero value never terminates and allows a single iteration per Invoke.
type TerminationStrategy struct {
	// Agents restricts evaluation to the listed agents when non-empty; turns
	// taken by other agents never complete the conversation.
	Agents []core.Agent
	// MaximumIterations caps the number of turns a single Invoke performs.
	// Values below 1 are treated as 1.
	MaximumIterations int
	// AutomaticReset clears a previous completion when Invoke is called
	// again instead of failing with ErrChatComplete.
	AutomaticReset bool
	// Condition evaluates completion. A nil Condition never terminates.
	Condition TerminationCondition
}

// DefaultTerminationStrategy never terminates and performs one turn per Invoke.
func DefaultTerminationStrategy() *TerminationStrategy {
	return &TerminationStrategy{MaximumIterations: 1}
}

// ShouldTerminate evaluates the strategy for the agent that just completed a turn.
func (t *TerminationStrategy) ShouldTerminate(ctx context.Context, agent core.Agent, history []core.Message) (bool, error) {
	if len(t.Agents) > 0 && !t.includes(agent) {
		return false, nil
	}
	if t.Condition == nil {
		return false, nil
	}
	return t.Condition(ctx, agent, history)
}

// maxIterations returns the effective per-Invoke turn budget.
func (t *TerminationStrategy) maxIterations() int {
	if t.MaximumIterations < 1 {
		return 1
	}
	return t.MaximumIterations
}

func (t *TerminationStrategy) includes(agent core.Agent) bool {
	for _, a := range t.Agents {
		if a.Identifier() == agent.Identifier() {
			return true
		}
	}
	return false
}
