package chat

import (
	"context"
	"sync"

	"github.com/hupe1980/agentchat/core"
	"github.com/hupe1980/agentchat/logging"
)

// ChannelReference pairs a channel instance with its identity hash so the
// broadcast queue can address per-channel state without inspecting channels.
type ChannelReference struct {
	Hash    string
	Channel core.AgentChannel
}

// channelQueue holds the delivery state for a single destination channel.
// batches are delivered strictly in enqueue order by one drain goroutine at a
// time; failure keeps the first undelivered error until a synchronizing
// caller collects it.
type channelQueue struct {
	mu      sync.Mutex
	batches [][]core.Message
	active  bool // a drain goroutine is running
	failure error
	changed chan struct{} // closed and replaced on every state change
}

func newChannelQueue() *channelQueue {
	return &channelQueue{changed: make(chan struct{})}
}

// signal wakes all waiters observing the previous state. Callers must hold mu.
func (q *channelQueue) signal() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// BroadcastQueue delivers message batches to agent channels asynchronously
// and out-of-band from the operation that produced them. Each destination
// channel has its own FIFO queue and its own drain goroutine, so a slow or
// failing channel never blocks delivery to the others and no cross-channel
// ordering is imposed.
type BroadcastQueue struct {
	mu     sync.Mutex
	queues map[string]*channelQueue
	logger logging.Logger
}

// BroadcastQueueOptions configures a BroadcastQueue.
type BroadcastQueueOptions struct {
	// Logger receives delivery diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// NewBroadcastQueue creates an empty broadcast queue.
func NewBroadcastQueue(optFns ...func(o *BroadcastQueueOptions)) *BroadcastQueue {
	opts := BroadcastQueueOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &BroadcastQueue{queues: map[string]*channelQueue{}, logger: opts.Logger}
}

// Enqueue schedules delivery of messages, in order, to each referenced
// channel and returns immediately. The caller must not assume delivery has
// happened; EnsureSynchronized provides that guarantee on demand.
func (b *BroadcastQueue) Enqueue(refs []ChannelReference, messages []core.Message) {
	if len(refs) == 0 || len(messages) == 0 {
		return
	}
	batch := core.CopyMessages(messages)
	for _, ref := range refs {
		q := b.queueFor(ref.Hash)
		q.mu.Lock()
		q.batches = append(q.batches, batch)
		if !q.active {
			q.active = true
			go b.drain(ref, q)
		}
		q.signal()
		q.mu.Unlock()
	}
}

// EnsureSynchronized blocks until every message previously enqueued for the
// referenced channel has been delivered to it, then returns any failure
// recorded during those deliveries (clearing it, so each failure is reported
// exactly once). Deliveries destined for other channels are never waited on.
func (b *BroadcastQueue) EnsureSynchronized(ctx context.Context, ref ChannelReference) error {
	b.mu.Lock()
	q, ok := b.queues[ref.Hash]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	for {
		q.mu.Lock()
		if q.failure != nil {
			err := q.failure
			q.failure = nil
			q.mu.Unlock()
			return err
		}
		if !q.active && len(q.batches) == 0 {
			q.mu.Unlock()
			return nil
		}
		wait := q.changed
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// queueFor returns the per-channel queue, creating it on first contact.
func (b *BroadcastQueue) queueFor(hash string) *channelQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[hash]
	if !ok {
		q = newChannelQueue()
		b.queues[hash] = q
	}
	return q
}

// drain delivers pending batches for one channel in FIFO order until the
// queue is empty. A failed batch is dropped (the queue performs no retry);
// the first failure is recorded for the next synchronizing caller and
// delivery of later batches continues.
func (b *BroadcastQueue) drain(ref ChannelReference, q *channelQueue) {
	for {
		q.mu.Lock()
		if len(q.batches) == 0 {
			q.active = false
			q.signal()
			q.mu.Unlock()
			return
		}
		batch := q.batches[0]
		q.batches = q.batches[1:]
		q.mu.Unlock()

		// Delivery happens out-of-band from any public chat operation, so
		// there is no caller context to inherit here.
		if err := ref.Channel.Receive(context.Background(), batch); err != nil {
			b.logger.Error("broadcast delivery failed", "channel", ref.Hash, "error", err)
			q.mu.Lock()
			if q.failure == nil {
				q.failure = &DeliveryError{ChannelHash: ref.Hash, Err: err}
			}
			q.signal()
			q.mu.Unlock()
			continue
		}
		b.logger.Debug("broadcast batch delivered", "channel", ref.Hash, "messages", len(batch))
	}
}
