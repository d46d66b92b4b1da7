package chat

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// GroupChatOptions configures a GroupChat.
type GroupChatOptions struct {
	// Logger receives orchestration diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
	// VisibilityFilter selects caller-visible messages from agent output.
	VisibilityFilter VisibilityFilter
	// Selection picks the next agent when Invoke runs without an explicit
	// agent. Defaults to sequential (round-robin) selection.
	Selection SelectionStrategy
	// Termination decides when the conversation is complete. Defaults to a
	// single-iteration strategy that never terminates.
	Termination *TerminationStrategy
}

// GroupChat is a Chat supporting multi-turn interactions between a registered
// set of agents. Turns are driven by a selection strategy and bounded by a
// termination strategy.
//
// A GroupChat is meant to be driven by one caller at a time: each turn claims
// the underlying activity flag, and the completion state is evaluated between
// turns while the flag is free.
type GroupChat struct {
	*Chat

	agents      []core.Agent
	agentIDs    map[string]struct{}
	selection   SelectionStrategy
	termination *TerminationStrategy
	complete    bool
}

// NewGroupChat creates a group chat with the given initial participants.
func NewGroupChat(agents []core.Agent, optFns ...func(o *GroupChatOptions)) *GroupChat {
	opts := GroupChatOptions{
		Logger:      logging.NoOpLogger{},
		Selection:   NewSequentialSelection(),
		Termination: DefaultTerminationStrategy(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Selection == nil {
		opts.Selection = NewSequentialSelection()
	}
	if opts.Termination == nil {
		opts.Termination = DefaultTerminationStrategy()
	}

	g := &GroupChat{
		Chat: New(func(o *Options) {
			o.Logger = opts.Logger
			o.VisibilityFilter = opts.VisibilityFilter
		}),
		agentIDs:    map[string]struct{}{},
		selection:   opts.Selection,
		termination: opts.Termination,
	}
	for _, a := range agents {
		g.AddAgent(a)
	}
	return g
}

// AddAgent registers an agent as a participant. Adding the same agent twice
// is a no-op.
func (g *GroupChat) AddAgent(agent core.Agent) {
	if _, ok := g.agentIDs[agent.Identifier()]; ok {
		return
	}
	g.agentIDs[agent.Identifier()] = struct{}{}
	g.agents = append(g.agents, agent)
}

// Agents returns a copy of the current participant list.
func (g *GroupChat) Agents() []core.Agent {
	out := make([]core.Agent, len(g.agents))
	copy(out, g.agents)
	return out
}

// IsComplete reports whether the termination strategy has marked the
// conversation complete.
func (g *GroupChat) IsComplete() bool { return g.complete }

// Reset clears the completion state so the conversation can continue.
func (g *GroupChat) Reset() { g.complete = false }

// InvokeTurn runs a single turn for an explicit agent, registering it as a
// participant if it is not one yet. The termination strategy is evaluated
// after the turn.
func (g *GroupChat) InvokeTurn(ctx context.Context, agent core.Agent) (<-chan core.Message, <-chan error, error) {
	g.AddAgent(agent)

	out := make(chan core.Message)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if err := g.runTurn(ctx, agent, out); err != nil {
			errCh <- err
		}
	}()
	return out, errCh, nil
}

// Invoke runs turns until the termination strategy completes the
// conversation or the per-invoke iteration budget is exhausted. Agents are
// chosen by the selection strategy. A completed conversation fails with
// ErrChatComplete unless the termination strategy resets automatically.
func (g *GroupChat) Invoke(ctx context.Context) (<-chan core.Message, <-chan error, error) {
	if len(g.agents) == 0 {
		return nil, nil, ErrNoAgents
	}
	if g.complete {
		if !g.termination.AutomaticReset {
			return nil, nil, ErrChatComplete
		}
		g.complete = false
	}

	out := make(chan core.Message)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		for i := 0; i < g.termination.maxIterations(); i++ {
			agent, err := g.selection.Next(ctx, g.agents, g.historySnapshot())
			if err != nil {
				errCh <- fmt.Errorf("chat: agent selection failed: %w", err)
				return
			}
			g.logger.Debug("turn selected", "iteration", i, "agent", agent.Name())
			if err := g.runTurn(ctx, agent, out); err != nil {
				errCh <- err
				return
			}
			if g.complete {
				return
			}
		}
	}()
	return out, errCh, nil
}

// runTurn performs one InvokeAgent interaction, forwarding visible messages
// to out, then evaluates the termination strategy against the authoritative
// history.
func (g *GroupChat) runTurn(ctx context.Context, agent core.Agent, out chan<- core.Message) error {
	msgs, errs, err := g.InvokeAgent(ctx, agent)
	if err != nil {
		return err
	}
	for msgs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, open := <-msgs:
			if !open {
				msgs = nil
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- m:
			}
		case e, open := <-errs:
			if !open {
				errs = nil
				continue
			}
			if e != nil {
				return e
			}
		}
	}

	terminate, err := g.termination.ShouldTerminate(ctx, agent, g.historySnapshot())
	if err != nil {
		return fmt.Errorf("chat: termination evaluation failed: %w", err)
	}
	if terminate {
		g.logger.Info("conversation complete", "agent", agent.Name())
		g.complete = true
	}
	return nil
}
