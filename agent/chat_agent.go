package agent

import (
	"context"

	"github.com/hupe1980/agentchat/channel"
	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/model"
)

// ChatAgentOptions configures a ChatAgent instance.
//
// Use functional options with NewChatAgent to override defaults.
type ChatAgentOptions struct {
	// Instructions steer the model for every turn this agent takes. They are
	// supplied to the model out-of-band and never enter the shared history.
	Instructions string
	// Description overrides the generated agent description.
	Description string
}

// ChatAgent is a model-backed conversational agent of the chat-history
// family. Its channel representation is a plain ordered message list; all
// chat agents within one chat therefore share a single channel instance.
type ChatAgent struct {
	BaseAgent

	model        model.Model
	instructions string
}

var _ channel.ChatHistoryHandler = (*ChatAgent)(nil)

// NewChatAgent creates a chat agent driven by the given model.
func NewChatAgent(name string, m model.Model, optFns ...func(o *ChatAgentOptions)) *ChatAgent {
	opts := ChatAgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	a := &ChatAgent{
		BaseAgent:    NewBaseAgent(name),
		model:        m,
		instructions: opts.Instructions,
	}
	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	return a
}

// ChannelKeys implements core.Agent. Chat agents discriminate solely on the
// channel family: their history representation is identical regardless of
// model or instructions, so they all bind to the same channel.
func (a *ChatAgent) ChannelKeys() []string {
	return []string{channel.ChatHistoryKey}
}

// CreateChannel implements core.Agent.
func (a *ChatAgent) CreateChannel(_ context.Context) (core.AgentChannel, error) {
	return channel.NewChatHistoryChannel(), nil
}

// InvokeHistory implements channel.ChatHistoryHandler. It drives one model
// generation over the given history and streams the resulting messages,
// authored under this agent's name.
func (a *ChatAgent) InvokeHistory(ctx context.Context, history []core.Message) (<-chan core.Message, <-chan error) {
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		responses, errs := a.model.Generate(ctx, model.Request{
			Instructions: a.instructions,
			Messages:     history,
		})
		for responses != nil || errs != nil {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case resp, open := <-responses:
				if !open {
					responses = nil
					continue
				}
				// Partial chunks are a transport detail of the model layer;
				// only complete turns become conversation messages.
				if resp.Partial {
					continue
				}
				m := resp.Message
				m.Name = a.Name()
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- m:
				}
			case err, open := <-errs:
				if !open {
					errs = nil
					continue
				}
				if err != nil {
					errCh <- err
					return
				}
			}
		}
	}()
	return out, errCh
}
