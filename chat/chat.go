package chat

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// VisibilityFilter decides which messages produced during an agent invocation
// surface to the caller. The authoritative history always receives every
// produced message; visibility is purely a presentation concern.
type VisibilityFilter func(core.Message) bool

// DefaultVisibilityFilter hides tool-role messages and messages consisting
// solely of function call/response parts.
func DefaultVisibilityFilter(m core.Message) bool {
	return m.Role != core.RoleTool && !m.IsToolOnly()
}

// Options configures a Chat.
type Options struct {
	// Logger receives orchestration diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
	// VisibilityFilter selects caller-visible messages from InvokeAgent
	// output. Defaults to DefaultVisibilityFilter.
	VisibilityFilter VisibilityFilter
}

// Chat coordinates multiple agents sharing one logical conversation. It owns
// the authoritative message history, the lazily populated channel maps and
// the activity flag serializing all public operations.
//
// Exactly one public operation may be active at a time; a second concurrent
// call fails fast with ErrChatBusy. Operations returning lazy streams hold
// the activity flag until the stream is fully consumed or the caller's
// context is cancelled, and release it on every exit path.
type Chat struct {
	queue   *BroadcastQueue
	logger  logging.Logger
	visible VisibilityFilter

	active atomic.Bool

	// Mutated only while the activity flag is held by the mutator.
	history       []core.Message
	agentChannels map[string]core.AgentChannel // channel hash -> channel instance
	channelMap    map[string]string            // agent id -> channel hash
}

// New creates an empty Chat.
func New(optFns ...func(o *Options)) *Chat {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		VisibilityFilter: DefaultVisibilityFilter,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.VisibilityFilter == nil {
		opts.VisibilityFilter = DefaultVisibilityFilter
	}
	return &Chat{
		queue:         NewBroadcastQueue(func(o *BroadcastQueueOptions) { o.Logger = opts.Logger }),
		logger:        opts.Logger,
		visible:       opts.VisibilityFilter,
		agentChannels: map[string]core.AgentChannel{},
		channelMap:    map[string]string{},
	}
}

// IsActive reports whether a public operation currently holds the chat.
func (c *Chat) IsActive() bool { return c.active.Load() }

// setActivityOrErr claims the activity flag or fails fast with ErrChatBusy.
// This is deliberately not a blocking lock: callers are never silently
// serialized.
func (c *Chat) setActivityOrErr() error {
	if !c.active.CompareAndSwap(false, true) {
		return ErrChatBusy
	}
	return nil
}

func (c *Chat) clearActivity() { c.active.Store(false) }

// AddMessages appends a batch of messages to the conversation and schedules
// its broadcast to every existing channel. The whole batch is validated
// first: if any message carries the system role, nothing is appended and a
// ValidationError is returned. The broadcast is non-blocking; delivery
// happens out-of-band.
func (c *Chat) AddMessages(ctx context.Context, messages []core.Message) error {
	if err := c.setActivityOrErr(); err != nil {
		return err
	}
	defer c.clearActivity()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range messages {
		if m.Role == core.RoleSystem {
			return &ValidationError{Reason: "system messages cannot be added to a chat"}
		}
	}

	batch := core.CopyMessages(messages)
	c.history = append(c.history, batch...)
	c.logger.Debug("messages added", "count", len(batch), "history", len(c.history))

	// There is no origin channel to exclude: the batch came from outside any
	// agent invocation.
	c.queue.Enqueue(c.channelRefs(""), batch)
	return nil
}

// GetMessages streams the authoritative conversation history, newest first.
// The activity flag is held until the stream is drained or ctx is cancelled.
func (c *Chat) GetMessages(ctx context.Context) (<-chan core.Message, <-chan error, error) {
	if err := c.setActivityOrErr(); err != nil {
		return nil, nil, err
	}
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	go func() {
		// LIFO: the flag is released before the streams close, so a caller
		// that has drained the stream can immediately start a new operation.
		defer close(errCh)
		defer close(out)
		defer c.clearActivity()
		c.streamReversed(ctx, c.history, out, errCh)
	}()
	return out, errCh, nil
}

// GetAgentMessages streams the conversation as seen through the given
// agent's channel, newest first. A channel that was never created has no
// content to offer: the stream completes empty. Otherwise the channel is
// synchronized against all pending broadcasts before its history is read, so
// the caller never observes a stale view.
func (c *Chat) GetAgentMessages(ctx context.Context, agent core.Agent) (<-chan core.Message, <-chan error, error) {
	if err := c.setActivityOrErr(); err != nil {
		return nil, nil, err
	}
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(out)
		defer c.clearActivity()

		hash := c.agentHash(agent)
		channel, ok := c.agentChannels[hash]
		if !ok {
			return
		}
		if err := c.queue.EnsureSynchronized(ctx, ChannelReference{Hash: hash, Channel: channel}); err != nil {
			errCh <- err
			return
		}
		for m := range channel.History(ctx) {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- m:
			}
		}
	}()
	return out, errCh, nil
}

// InvokeAgent runs a discrete interaction between the agent and the
// conversation. The agent's channel is created lazily (primed once with the
// full accumulated history) or synchronized against pending broadcasts if it
// already exists. Every produced message is appended to the authoritative
// history; only messages passing the visibility filter are streamed to the
// caller. After the interaction completes, the collected batch is broadcast
// to every channel except the one just invoked, which already holds the
// content by construction.
//
// Failures from the channel (creation, priming, invocation) propagate
// verbatim on the error channel; the chat performs no retry.
func (c *Chat) InvokeAgent(ctx context.Context, agent core.Agent) (<-chan core.Message, <-chan error, error) {
	if err := c.setActivityOrErr(); err != nil {
		return nil, nil, err
	}
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(out)
		defer c.clearActivity()

		c.logger.Info("invoking agent", "agent", agent.Name())

		hash := c.agentHash(agent)
		channel, ok := c.agentChannels[hash]
		if !ok {
			var err error
			if channel, err = c.createChannel(ctx, agent, hash); err != nil {
				errCh <- err
				return
			}
		} else if err := c.queue.EnsureSynchronized(ctx, ChannelReference{Hash: hash, Channel: channel}); err != nil {
			errCh <- err
			return
		}

		var produced []core.Message
		defer func() {
			if len(produced) > 0 {
				c.queue.Enqueue(c.channelRefs(hash), produced)
			}
		}()

		msgs, errs := channel.Invoke(ctx, agent)
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
				m = m.Clone()
				c.history = append(c.history, m)
				produced = append(produced, m)
				if !c.visible(m) {
					continue
				}
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
	return out, errCh, nil
}

// createChannel constructs and primes the channel for an agent, registering
// it only after priming succeeded so a half-initialized channel is never
// observable.
func (c *Chat) createChannel(ctx context.Context, agent core.Agent, hash string) (core.AgentChannel, error) {
	c.logger.Debug("creating channel", "agent", agent.Name(), "channel", hash)
	channel, err := agent.CreateChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create channel for agent %s: %w", agent.Name(), err)
	}
	if len(c.history) > 0 {
		if err := channel.Receive(ctx, core.CopyMessages(c.history)); err != nil {
			return nil, fmt.Errorf("prime channel for agent %s: %w", agent.Name(), err)
		}
	}
	c.agentChannels[hash] = channel
	return channel, nil
}

// agentHash resolves the channel identity of an agent, caching the mapping
// for the chat's lifetime. Safe to recompute: the same agent always produces
// the same hash.
func (c *Chat) agentHash(agent core.Agent) string {
	id := agent.Identifier()
	if hash, ok := c.channelMap[id]; ok {
		return hash
	}
	hash := GenerateHash(agent.ChannelKeys())
	c.channelMap[id] = hash
	return hash
}

// channelRefs collects references to every known channel except the one with
// the given hash. Pass an empty hash to include all channels.
func (c *Chat) channelRefs(exclude string) []ChannelReference {
	refs := make([]ChannelReference, 0, len(c.agentChannels))
	for hash, channel := range c.agentChannels {
		if hash == exclude {
			continue
		}
		refs = append(refs, ChannelReference{Hash: hash, Channel: channel})
	}
	return refs
}

// historySnapshot copies the authoritative history. Callers must not hold
// the activity flag through another goroutine while using it; group chats
// call it between turns when no operation is active.
func (c *Chat) historySnapshot() []core.Message {
	return core.CopyMessages(c.history)
}

// streamReversed emits messages newest first, honoring cancellation.
func (c *Chat) streamReversed(ctx context.Context, messages []core.Message, out chan<- core.Message, errCh chan<- error) {
	for i := len(messages) - 1; i >= 0; i-- {
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		case out <- messages[i]:
		}
	}
}
