package chain

import "errors"

// Chain integrity errors. Every rejected append names the exact rule it
// broke; the chain is never partially mutated.
var (
	ErrInvalidPreviousEvent   = errors.New("prev event id does not match chain head")
	ErrMissingPreviousEvent   = errors.New("non-first event missing prev event id")
	ErrInvalidTurnSequence    = errors.New("turn number decreased")
	ErrInvalidSequence        = errors.New("sequence number did not increase within turn")
	ErrBrokenChain            = errors.New("chain linkage broken")
	ErrEventNotFound          = errors.New("event not found")
	ErrMissingRandomnessProof = errors.New("action requires a randomness proof")
	ErrInvalidRandomnessProof = errors.New("randomness proof is invalid")
	ErrUnsignedEvent          = errors.New("event has no id")
	ErrDuplicateEvent         = errors.New("event id already in chain")
)

// EventChain is the ordered, validated log of a game's events. It grows
// monotonically; Add either appends atomically or rejects with a typed
// error.
type EventChain struct {
	events []*GameEvent
	byID   map[string]*GameEvent
	lastID string
}

// NewEventChain creates an empty chain.
func NewEventChain() *EventChain {
	return &EventChain{byID: make(map[string]*GameEvent)}
}

// Len returns the number of appended events.
func (c *EventChain) Len() int { return len(c.events) }

// LastID returns the id of the chain head, empty for an empty chain.
func (c *EventChain) LastID() string { return c.lastID }

// Last returns the chain head event, or nil.
func (c *EventChain) Last() *GameEvent {
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

// Events returns the events in chain order. The slice is shared; callers
// must not mutate it.
func (c *EventChain) Events() []*GameEvent { return c.events }

// Get looks up an event by id.
func (c *EventChain) Get(id string) (*GameEvent, error) {
	e, ok := c.byID[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return e, nil
}

// Add validates and appends the event. Each check maps to a distinct
// error; on any failure the chain is left untouched.
func (c *EventChain) Add(e *GameEvent) error {
	if e.ID == "" {
		return ErrUnsignedEvent
	}
	if _, dup := c.byID[e.ID]; dup {
		return ErrDuplicateEvent
	}

	if len(c.events) == 0 {
		if e.PrevEventID != "" {
			return ErrInvalidPreviousEvent
		}
	} else {
		if e.PrevEventID == "" {
			return ErrMissingPreviousEvent
		}
		if e.PrevEventID != c.lastID {
			return ErrInvalidPreviousEvent
		}
	}

	if last := c.Last(); last != nil {
		if e.Turn < last.Turn {
			return ErrInvalidTurnSequence
		}
		if e.Turn == last.Turn && e.Sequence <= last.Sequence {
			return ErrInvalidSequence
		}
	}

	if e.Action.RequiresRandom() {
		if e.Proof == nil || len(e.Proof.RandomBytes) == 0 {
			return ErrMissingRandomnessProof
		}
	}

	c.events = append(c.events, e)
	c.byID[e.ID] = e
	c.lastID = e.ID
	return nil
}

// Verify re-walks the linkage for external audit: every event's prev id
// must reference the event immediately before it.
func (c *EventChain) Verify() error {
	for i, e := range c.events {
		if i == 0 {
			if e.PrevEventID != "" {
				return ErrBrokenChain
			}
			continue
		}
		if e.PrevEventID != c.events[i-1].ID {
			return ErrBrokenChain
		}
	}
	return nil
}
