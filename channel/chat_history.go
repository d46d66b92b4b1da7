package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentchat/core"
)

// ChatHistoryKey is the channel discriminator key shared by every agent of
// the chat-history family.
const ChatHistoryKey = "ChatHistoryChannel"

// ChatHistoryHandler is implemented by agents that converse directly over an
// in-memory message history. ChatHistoryChannel only binds to agents of this
// family; handing it any other agent is an invalid channel binding.
type ChatHistoryHandler interface {
	core.Agent

	// InvokeHistory produces the agent's next messages given the channel's
	// current history. Messages stream on the first channel; a terminal
	// failure arrives on the second. Both are closed when done.
	InvokeHistory(ctx context.Context, history []core.Message) (<-chan core.Message, <-chan error)
}

// ChatHistoryChannel is an AgentChannel that stores the conversation as a
// plain ordered message slice. All agents of the chat-history family share
// one instance per chat since their representation needs are identical.
type ChatHistoryChannel struct {
	mu       sync.Mutex
	messages []core.Message
}

// NewChatHistoryChannel creates an empty chat history channel.
func NewChatHistoryChannel() *ChatHistoryChannel {
	return &ChatHistoryChannel{}
}

// Receive implements core.AgentChannel by appending the messages to the
// channel-local history.
func (c *ChatHistoryChannel) Receive(ctx context.Context, messages []core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, messages...)
	return nil
}

// Invoke implements core.AgentChannel. It delegates generation to the
// agent's InvokeHistory and appends each produced message to the local
// history before forwarding it, so the invoked channel never needs the
// resulting broadcast.
func (c *ChatHistoryChannel) Invoke(ctx context.Context, agent core.Agent) (<-chan core.Message, <-chan error) {
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	handler, ok := agent.(ChatHistoryHandler)
	if !ok {
		close(out)
		errCh <- fmt.Errorf("channel: invalid binding for agent %s (%T): not a chat history handler", agent.Identifier(), agent)
		close(errCh)
		return out, errCh
	}

	go func() {
		defer close(out)
		defer close(errCh)

		msgs, errs := handler.InvokeHistory(ctx, c.snapshot())
		for msgs != nil || errs != nil {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case m, open := <-msgs:
				if !open {
					msgs = nil
					continue
				}
				c.mu.Lock()
				c.messages = append(c.messages, m)
				c.mu.Unlock()
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

// History implements core.AgentChannel, streaming the local history newest first.
func (c *ChatHistoryChannel) History(ctx context.Context) <-chan core.Message {
	out := make(chan core.Message)
	snapshot := c.snapshot()
	go func() {
		defer close(out)
		for i := len(snapshot) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				return
			case out <- snapshot[i]:
			}
		}
	}()
	return out
}

// Len returns the number of messages currently held by the channel.
func (c *ChatHistoryChannel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *ChatHistoryChannel) snapshot() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.CopyMessages(c.messages)
}
