package netsync

import (
	"sync"
	"time"

	"hexempire/internal/chain"
)

// EventBatch groups events under a strictly increasing id so receivers
// can deduplicate whole batches after a reconnect replay.
type EventBatch struct {
	ID     uint64             `json:"id"`
	Events []*chain.GameEvent `json:"events"`
}

// EventBatcher accumulates events and flushes when the batch reaches
// maxEvents or when maxDelay has passed since the first pending event.
// Flushing is pull-based: callers ask via Poll (or force with Flush),
// which keeps the batcher free of its own goroutine and trivially
// testable with an injected clock.
type EventBatcher struct {
	mu        sync.Mutex
	maxEvents int
	maxDelay  time.Duration
	now       func() time.Time

	pending []*chain.GameEvent
	oldest  time.Time
	nextID  uint64
}

// NewEventBatcher builds a batcher flushing at maxEvents or after
// maxDelay, whichever comes first.
func NewEventBatcher(maxEvents int, maxDelay time.Duration) *EventBatcher {
	if maxEvents < 1 {
		maxEvents = 1
	}
	return &EventBatcher{maxEvents: maxEvents, maxDelay: maxDelay, now: time.Now}
}

// Add queues an event. It returns a batch when the size threshold was
// hit, else nil.
func (b *EventBatcher) Add(ev *chain.GameEvent) *EventBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		b.oldest = b.now()
	}
	b.pending = append(b.pending, ev)
	if len(b.pending) >= b.maxEvents {
		return b.flushLocked()
	}
	return nil
}

// Poll returns a batch if the pending events have waited past maxDelay,
// else nil.
func (b *EventBatcher) Poll() *EventBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 || b.now().Sub(b.oldest) < b.maxDelay {
		return nil
	}
	return b.flushLocked()
}

// Flush force-emits whatever is pending, or nil when empty.
func (b *EventBatcher) Flush() *EventBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	return b.flushLocked()
}

// Pending is the number of queued events.
func (b *EventBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *EventBatcher) flushLocked() *EventBatch {
	b.nextID++
	batch := &EventBatch{ID: b.nextID, Events: b.pending}
	b.pending = nil
	return batch
}

// Unbatcher unpacks received batches, dropping batch ids it has already
// processed. Batch ids are remembered in a bounded LRU window.
type Unbatcher struct {
	mu     sync.Mutex
	seen   map[uint64]bool
	order  []uint64
	window int
}

// NewUnbatcher remembers up to window batch ids.
func NewUnbatcher(window int) *Unbatcher {
	if window < 1 {
		window = 1
	}
	return &Unbatcher{seen: make(map[uint64]bool), window: window}
}

// Unpack returns the batch's events, or nil if the batch id was already
// processed.
func (u *Unbatcher) Unpack(batch *EventBatch) []*chain.GameEvent {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.seen[batch.ID] {
		return nil
	}
	u.seen[batch.ID] = true
	u.order = append(u.order, batch.ID)
	if len(u.order) > u.window {
		delete(u.seen, u.order[0])
		u.order = u.order[1:]
	}
	return batch.Events
}
