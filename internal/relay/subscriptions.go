package relay

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hexempire/internal/chain"
)

// Subscription is one live listener. Events arrive on C; the channel is
// closed on unsubscribe.
type Subscription struct {
	ID     string
	Filter Filter
	C      chan *chain.GameEvent
}

// SubscriptionRegistry fans stored events out to matching subscribers.
// Delivery is best-effort: a subscriber whose buffer is full misses the
// event and the miss is counted, so one stalled reader cannot stall the
// relay.
type SubscriptionRegistry struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	log    logrus.FieldLogger

	dropped atomic.Uint64
}

// NewSubscriptionRegistry builds a registry whose subscriber channels
// hold up to buffer events.
func NewSubscriptionRegistry(buffer int, logger logrus.FieldLogger) *SubscriptionRegistry {
	if buffer < 1 {
		buffer = 16
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &SubscriptionRegistry{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		log:    logger.WithField("component", "relay-subs"),
	}
}

// Subscribe registers a listener for events matching the filter. An
// empty id gets a generated one.
func (r *SubscriptionRegistry) Subscribe(id string, f Filter) *Subscription {
	if id == "" {
		id = uuid.NewString()
	}
	sub := &Subscription{ID: id, Filter: f, C: make(chan *chain.GameEvent, r.buffer)}
	r.mu.Lock()
	if old, found := r.subs[id]; found {
		close(old.C)
	}
	r.subs[id] = sub
	r.mu.Unlock()
	return sub
}

// Unsubscribe removes a listener and closes its channel.
func (r *SubscriptionRegistry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, found := r.subs[id]; found {
		close(sub.C)
		delete(r.subs, id)
	}
}

// Notify offers the event to every matching subscriber without blocking.
func (r *SubscriptionRegistry) Notify(ev *chain.GameEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if !sub.Filter.Matches(ev) {
			continue
		}
		select {
		case sub.C <- ev:
		default:
			r.dropped.Add(1)
			r.log.WithFields(logrus.Fields{"sub": sub.ID, "event": ev.ID}).
				Warn("slow subscriber missed event")
		}
	}
}

// Dropped is how many deliveries were skipped for slow subscribers.
func (r *SubscriptionRegistry) Dropped() uint64 {
	return r.dropped.Load()
}

// Count is the number of live subscriptions.
func (r *SubscriptionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
