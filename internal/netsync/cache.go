package netsync

import (
	"container/list"
	"sync"

	"hexempire/internal/chain"
)

// EventCache is a bounded LRU of full events plus a larger bounded set
// of ids the cache has ever seen. The two answer different questions:
// Get answers "do we still hold the payload", Seen answers "has this id
// passed through before" and is what deduplication keys on. An evicted
// event stays seen.
type EventCache struct {
	mu       sync.Mutex
	capacity int

	entries map[string]*list.Element
	order   *list.List // front = most recent

	seenCap int
	seen    map[string]*list.Element
	seenLRU *list.List
}

type cacheEntry struct {
	id    string
	event *chain.GameEvent
}

// NewEventCache builds a cache holding up to capacity events and
// remembering up to seenCapacity ids. seenCapacity below capacity is
// raised to match, otherwise eviction would also forget.
func NewEventCache(capacity, seenCapacity int) *EventCache {
	if capacity < 1 {
		capacity = 1
	}
	if seenCapacity < capacity {
		seenCapacity = capacity
	}
	return &EventCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		seenCap:  seenCapacity,
		seen:     make(map[string]*list.Element),
		seenLRU:  list.New(),
	}
}

// Add inserts or refreshes an event. Returns false if the id was already
// seen, which is the dedup signal.
func (c *EventCache) Add(ev *chain.GameEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := !c.markSeen(ev.ID)

	if elem, found := c.entries[ev.ID]; found {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).event = ev
		return fresh
	}

	c.entries[ev.ID] = c.order.PushFront(&cacheEntry{id: ev.ID, event: ev})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).id)
	}
	return fresh
}

// Get returns the cached event and refreshes its recency, or nil.
func (c *EventCache) Get(id string) *chain.GameEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, found := c.entries[id]
	if !found {
		return nil
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).event
}

// Seen reports whether the id has ever passed through the cache, even if
// the payload has since been evicted.
func (c *EventCache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, found := c.seen[id]
	return found
}

// Len is the number of cached payloads.
func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// markSeen records the id in the seen set, returning whether it was
// already there. Caller holds the lock.
func (c *EventCache) markSeen(id string) bool {
	if elem, found := c.seen[id]; found {
		c.seenLRU.MoveToFront(elem)
		return true
	}
	c.seen[id] = c.seenLRU.PushFront(id)
	if c.seenLRU.Len() > c.seenCap {
		oldest := c.seenLRU.Back()
		c.seenLRU.Remove(oldest)
		delete(c.seen, oldest.Value.(string))
	}
	return false
}
