package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChannel is an AgentChannel test double. It records the order of
// Receive/Invoke calls, keeps a channel-local history like a real variant,
// and plays back pre-scripted outputs on successive Invoke calls.
type scriptedChannel struct {
	mu           sync.Mutex
	events       []string
	history      []core.Message
	outputs      [][]core.Message
	invokes      int
	receiveDelay time.Duration
	receiveErr   error
	invokeErr    error
}

func (c *scriptedChannel) Receive(ctx context.Context, messages []core.Message) error {
	if c.receiveDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.receiveDelay):
		}
	}
	if c.receiveErr != nil {
		return c.receiveErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "receive")
	c.history = append(c.history, messages...)
	return nil
}

func (c *scriptedChannel) Invoke(ctx context.Context, _ core.Agent) (<-chan core.Message, <-chan error) {
	out := make(chan core.Message)
	errCh := make(chan error, 1)

	c.mu.Lock()
	c.events = append(c.events, "invoke")
	idx := c.invokes
	c.invokes++
	var batch []core.Message
	if idx < len(c.outputs) {
		batch = c.outputs[idx]
		c.history = append(c.history, batch...)
	}
	err := c.invokeErr
	c.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)
		if err != nil {
			errCh <- err
			return
		}
		for _, m := range batch {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- m:
			}
		}
	}()
	return out, errCh
}

func (c *scriptedChannel) History(ctx context.Context) <-chan core.Message {
	c.mu.Lock()
	snapshot := core.CopyMessages(c.history)
	c.mu.Unlock()

	out := make(chan core.Message)
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

func (c *scriptedChannel) recordedEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	copy(out, c.events)
	return out
}

func (c *scriptedChannel) localHistory() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.CopyMessages(c.history)
}

// fakeAgent is a minimal core.Agent bound to a prepared channel.
type fakeAgent struct {
	id        string
	name      string
	keys      []string
	channel   core.AgentChannel
	createErr error
	created   int
}

func newFakeAgent(name string, keys []string, ch core.AgentChannel) *fakeAgent {
	return &fakeAgent{id: core.NewID(), name: name, keys: keys, channel: ch}
}

func (a *fakeAgent) Identifier() string    { return a.id }
func (a *fakeAgent) Name() string          { return a.name }
func (a *fakeAgent) Description() string   { return "fake agent " + a.name }
func (a *fakeAgent) ChannelKeys() []string { return a.keys }

func (a *fakeAgent) CreateChannel(context.Context) (core.AgentChannel, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.created++
	return a.channel, nil
}

// drain collects a lazy message stream plus its terminal error.
func drain(t *testing.T, msgs <-chan core.Message, errs <-chan error) ([]core.Message, error) {
	t.Helper()
	var out []core.Message
	var err error
	for msgs != nil || errs != nil {
		select {
		case m, open := <-msgs:
			if !open {
				msgs = nil
				continue
			}
			out = append(out, m)
		case e, open := <-errs:
			if !open {
				errs = nil
				continue
			}
			if e != nil {
				err = e
			}
		}
	}
	return out, err
}

func texts(messages []core.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text()
	}
	return out
}

func TestChat_AddMessagesAppendsInCallOrder(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("first")}))
	require.NoError(t, c.AddMessages(ctx, []core.Message{
		core.NewUserMessage("second"),
		core.NewUserMessage("third"),
	}))

	msgs, errs, err := c.GetMessages(ctx)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)

	// Newest first.
	assert.Equal(t, []string{"third", "second", "first"}, texts(got))
}

func TestChat_AddMessagesRejectsSystemRoleAtomically(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("ok")}))

	err := c.AddMessages(ctx, []core.Message{
		core.NewUserMessage("fine"),
		core.NewSystemMessage("forbidden"),
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	msgs, errs, err := c.GetMessages(ctx)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, texts(got), "rejected batch must not partially append")
}

func TestChat_BusyFailsFastWithoutBlocking(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("hi")}))

	// Claim the flag via an undrained lazy read.
	msgs, errs, err := c.GetMessages(ctx)
	require.NoError(t, err)
	assert.True(t, c.IsActive())

	err = c.AddMessages(ctx, []core.Message{core.NewUserMessage("blocked")})
	assert.ErrorIs(t, err, ErrChatBusy)

	_, _, err = c.GetMessages(ctx)
	assert.ErrorIs(t, err, ErrChatBusy)

	// Draining releases the flag and the chat is usable again.
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("after")}))
}

func TestChat_CancellationReleasesActivityFlag(t *testing.T) {
	c := New()
	require.NoError(t, c.AddMessages(context.Background(), []core.Message{
		core.NewUserMessage("one"),
		core.NewUserMessage("two"),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	msgs, errs, err := c.GetMessages(ctx)
	require.NoError(t, err)

	_, err = drain(t, msgs, errs)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, c.AddMessages(context.Background(), []core.Message{core.NewUserMessage("again")}))
}

func TestChat_AgentsWithIdenticalKeysShareOneChannel(t *testing.T) {
	ch := &scriptedChannel{outputs: [][]core.Message{
		{core.NewAssistantMessage("a", "turn one")},
		{core.NewAssistantMessage("b", "turn two")},
	}}
	a := newFakeAgent("a", []string{"ChatHistoryChannel"}, ch)
	b := newFakeAgent("b", []string{"ChatHistoryChannel"}, &scriptedChannel{})

	c := New()
	ctx := context.Background()

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	msgs, errs, err = c.InvokeAgent(ctx, b)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)

	assert.Equal(t, 1, a.created, "first agent creates the shared channel")
	assert.Equal(t, 0, b.created, "identical keys must reuse the existing channel")
	assert.Equal(t, 2, ch.invokes)
	assert.Equal(t, []string{"turn two"}, texts(got))
}

func TestChat_AgentsWithDifferentKeysGetSeparateChannels(t *testing.T) {
	a := newFakeAgent("a", []string{"FamilyA"}, &scriptedChannel{})
	b := newFakeAgent("b", []string{"FamilyB"}, &scriptedChannel{})

	c := New()
	ctx := context.Background()
	for _, ag := range []*fakeAgent{a, b} {
		msgs, errs, err := c.InvokeAgent(ctx, ag)
		require.NoError(t, err)
		_, err = drain(t, msgs, errs)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, a.created)
	assert.Equal(t, 1, b.created)
}

func TestChat_NewChannelPrimedWithHistoryBeforeInvoke(t *testing.T) {
	ch := &scriptedChannel{outputs: [][]core.Message{{core.NewAssistantMessage("a", "reply")}}}
	a := newFakeAgent("a", []string{"ChatHistoryChannel"}, ch)

	c := New()
	ctx := context.Background()
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("hello")}))

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	events := ch.recordedEvents()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, []string{"receive", "invoke"}, events[:2], "priming must happen before invocation")
	assert.Contains(t, texts(ch.localHistory()), "hello")
}

func TestChat_EmptyHistorySkipsPriming(t *testing.T) {
	ch := &scriptedChannel{}
	a := newFakeAgent("a", []string{"ChatHistoryChannel"}, ch)

	c := New()
	msgs, errs, err := c.InvokeAgent(context.Background(), a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoke"}, ch.recordedEvents())
}

func TestChat_SecondAgentSeesFirstAgentsOutput(t *testing.T) {
	chA := &scriptedChannel{outputs: [][]core.Message{{
		core.NewAssistantMessage("a", "m1"),
		core.NewAssistantMessage("a", "m2"),
	}}}
	chB := &scriptedChannel{outputs: [][]core.Message{{core.NewAssistantMessage("b", "m3")}}}
	a := newFakeAgent("a", []string{"FamilyA"}, chA)
	b := newFakeAgent("b", []string{"FamilyB"}, chB)

	c := New()
	ctx := context.Background()

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, texts(got))

	msgs, errs, err = c.InvokeAgent(ctx, b)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	// B's channel was created after A's turn, so it was primed with the
	// full accumulated history before being invoked.
	events := chB.recordedEvents()
	assert.Equal(t, []string{"receive", "invoke"}, events[:2])
	assert.Subset(t, texts(chB.localHistory()), []string{"m1", "m2", "m3"})
}

func TestChat_BroadcastExcludesInvokedChannel(t *testing.T) {
	chA := &scriptedChannel{outputs: [][]core.Message{{core.NewAssistantMessage("a", "own output")}}}
	chB := &scriptedChannel{outputs: [][]core.Message{{core.NewAssistantMessage("b", "b reply")}}}
	a := newFakeAgent("a", []string{"FamilyA"}, chA)
	b := newFakeAgent("b", []string{"FamilyB"}, chB)

	c := New()
	ctx := context.Background()

	for _, ag := range []*fakeAgent{a, b} {
		msgs, errs, err := c.InvokeAgent(ctx, ag)
		require.NoError(t, err)
		_, err = drain(t, msgs, errs)
		require.NoError(t, err)
	}

	// Barrier both channels before inspecting them.
	for _, ref := range []ChannelReference{
		{Hash: GenerateHash([]string{"FamilyA"}), Channel: chA},
		{Hash: GenerateHash([]string{"FamilyB"}), Channel: chB},
	} {
		require.NoError(t, c.queue.EnsureSynchronized(ctx, ref))
	}

	// A holds its own output by construction plus B's broadcast turn,
	// without a duplicate of its own output.
	histA := texts(chA.localHistory())
	assert.Equal(t, []string{"own output", "b reply"}, histA)
	// B was primed with A's output at creation and holds its own turn locally.
	histB := texts(chB.localHistory())
	assert.Equal(t, []string{"own output", "b reply"}, histB)
}

func TestChat_GetAgentMessagesWithoutChannelIsEmpty(t *testing.T) {
	c := New()
	a := newFakeAgent("a", []string{"FamilyA"}, &scriptedChannel{})

	msgs, errs, err := c.GetAgentMessages(context.Background(), a)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChat_GetAgentMessagesWaitsForPendingBroadcasts(t *testing.T) {
	ch := &scriptedChannel{receiveDelay: 100 * time.Millisecond}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New()
	ctx := context.Background()

	// Create the channel with an empty history.
	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	// The broadcast of this batch is still in flight when we read.
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("late")}))

	msgs, errs, err = c.GetAgentMessages(ctx, a)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Contains(t, texts(got), "late", "barrier must drain pending deliveries before reading")
}

func TestChat_GetAgentMessagesSurfacesDeliveryFailure(t *testing.T) {
	ch := &scriptedChannel{}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New()
	ctx := context.Background()

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.NoError(t, err)

	ch.receiveErr = errors.New("ingest failed")
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("doomed")}))

	msgs, errs, err = c.GetAgentMessages(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
}

func TestChat_GetMessagesIsIdempotent(t *testing.T) {
	c := New()
	ctx := context.Background()
	require.NoError(t, c.AddMessages(ctx, []core.Message{
		core.NewUserMessage("one"),
		core.NewUserMessage("two"),
	}))

	var runs [][]string
	for i := 0; i < 2; i++ {
		msgs, errs, err := c.GetMessages(ctx)
		require.NoError(t, err)
		got, err := drain(t, msgs, errs)
		require.NoError(t, err)
		runs = append(runs, texts(got))
	}
	assert.Equal(t, runs[0], runs[1])
}

func TestChat_VisibilityFilterHidesToolMessagesFromCaller(t *testing.T) {
	toolMsg := testutil.NewMessageBuilder().
		Role(core.RoleTool).
		Name("a").
		FunctionResponse(core.FunctionResponse{ID: "c1", Name: "lookup", Response: "42"}).
		Build()
	ch := &scriptedChannel{outputs: [][]core.Message{{
		core.NewAssistantMessage("a", "visible"),
		toolMsg,
	}}}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New()
	ctx := context.Background()

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"visible"}, texts(got))

	// History always receives everything.
	msgs, errs, err = c.GetMessages(ctx)
	require.NoError(t, err)
	all, err := drain(t, msgs, errs)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestChat_VisibilityFilterIsConfigurable(t *testing.T) {
	ch := &scriptedChannel{outputs: [][]core.Message{{core.NewAssistantMessage("a", "anything")}}}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New(func(o *Options) {
		o.VisibilityFilter = func(core.Message) bool { return false }
	})
	msgs, errs, err := c.InvokeAgent(context.Background(), a)
	require.NoError(t, err)
	got, err := drain(t, msgs, errs)
	require.NoError(t, err)
	assert.Empty(t, got, "filter hiding everything must yield an empty stream")
}

func TestChat_InvokeAgentPropagatesChannelErrors(t *testing.T) {
	boom := errors.New("model blew up")
	ch := &scriptedChannel{invokeErr: boom}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New()
	msgs, errs, err := c.InvokeAgent(context.Background(), a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	assert.ErrorIs(t, err, boom)

	// The flag must be free again.
	require.NoError(t, c.AddMessages(context.Background(), []core.Message{core.NewUserMessage("ok")}))
}

func TestChat_InvokeAgentPropagatesCreateChannelError(t *testing.T) {
	a := newFakeAgent("a", []string{"FamilyA"}, nil)
	a.createErr = errors.New("no channel for you")

	c := New()
	msgs, errs, err := c.InvokeAgent(context.Background(), a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.ErrorContains(t, err, "no channel for you")
}

func TestChat_InvokeAgentPropagatesPrimingError(t *testing.T) {
	ch := &scriptedChannel{receiveErr: errors.New("refused history")}
	a := newFakeAgent("a", []string{"FamilyA"}, ch)

	c := New()
	ctx := context.Background()
	require.NoError(t, c.AddMessages(ctx, []core.Message{core.NewUserMessage("hi")}))

	msgs, errs, err := c.InvokeAgent(ctx, a)
	require.NoError(t, err)
	_, err = drain(t, msgs, errs)
	require.ErrorContains(t, err, "refused history")

	// The failed channel must not be registered; a later invoke retries creation.
	assert.Equal(t, 0, ch.invokes)
}
