package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// ErrNoAgents is returned by selection strategies when the candidate set is empty.
var ErrNoAgents = errors.New("chat: no agents are available for selection")

// SelectionStrategy picks the agent that takes the next conversation turn.
type SelectionStrategy interface {
	// Next returns the agent for the upcoming turn given the current
	// participants and the authoritative history so far.
	Next(ctx context.Context, agents []core.Agent, history []core.Message) (core.Agent, error)
}

// SequentialSelection cycles through the participants in registration order,
// one turn each. It is safe for use across successive invocations.
type SequentialSelection struct {
	mu    sync.Mutex
	index int
}

// NewSequentialSelection creates a round-robin selection strategy.
func NewSequentialSelection() *SequentialSelection { return &SequentialSelection{} }

// Next implements SelectionStrategy.
func (s *SequentialSelection) Next(_ context.Context, agents []core.Agent, _ []core.Message) (core.Agent, error) {
	if len(agents) == 0 {
		return nil, ErrNoAgents
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	agent := agents[s.index%len(agents)]
	s.index++
	return agent, nil
}

// SelectionFunc adapts a plain function into a SelectionStrategy.
type SelectionFunc func(ctx context.Context, agents []core.Agent, history []core.Message) (core.Agent, error)

// Next implements SelectionStrategy.
func (f SelectionFunc) Next(ctx context.Context, agents []core.Agent, history []core.Message) (core.Agent, error) {
	return f(ctx, agents, history)
}
