package netsync

import (
	"errors"
	"sync"

	"hexempire/internal/chain"
)

// Priority orders event delivery. Lower value is more urgent.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityCosmetic
	numPriorities
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityCosmetic:
		return "cosmetic"
	}
	return "unknown"
}

// PriorityFor maps an action kind to its delivery tier. Pure: the same
// kind always lands in the same tier.
//
// Only game end is Critical. Combat and turn transitions are urgent but
// stay at High so fair scheduling can still interleave lower tiers
// under a combat burst; Critical is reserved for the one kind that must
// never wait behind anything.
func PriorityFor(kind chain.ActionKind) Priority {
	switch kind {
	case chain.ActionEndGame:
		return PriorityCritical
	case chain.ActionCreateGame, chain.ActionStartGame, chain.ActionJoinGame,
		chain.ActionEndTurn, chain.ActionAttackUnit, chain.ActionAttackCity,
		chain.ActionDeclareWar, chain.ActionProposePeace,
		chain.ActionAcceptPeace, chain.ActionRejectPeace:
		return PriorityHigh
	case chain.ActionMoveUnit, chain.ActionFoundCity,
		chain.ActionSetProduction, chain.ActionBuyItem, chain.ActionSellBuilding,
		chain.ActionSetResearch, chain.ActionBuildImprovement,
		chain.ActionBuildRoad, chain.ActionRemoveFeature, chain.ActionUpgradeUnit:
		return PriorityNormal
	case chain.ActionFortifyUnit, chain.ActionSleepUnit, chain.ActionWakeUnit,
		chain.ActionDeleteUnit, chain.ActionAssignCitizen, chain.ActionUnassignCitizen:
		return PriorityLow
	}
	return PriorityCosmetic
}

// ErrQueueFull is returned when the queue is at capacity; the event is
// dropped and counted.
var ErrQueueFull = errors.New("netsync: priority queue full")

// EventPriorityQueue holds pending events in five FIFO tiers. In strict
// mode the highest non-empty tier always wins. In fair mode a tier that
// has been served maxConsecutive times in a row yields one slot to the
// next non-empty lower tier, except that Critical is never skipped.
type EventPriorityQueue struct {
	mu       sync.Mutex
	tiers    [numPriorities][]*chain.GameEvent
	size     int
	capacity int

	fair           bool
	maxConsecutive int
	lastTier       Priority
	consecutive    int

	dropped uint64
}

// NewEventPriorityQueue builds a strict-mode queue with the given total
// capacity. Capacity 0 means unbounded.
func NewEventPriorityQueue(capacity int) *EventPriorityQueue {
	return &EventPriorityQueue{capacity: capacity, lastTier: numPriorities}
}

// SetFair switches fairness on with the given consecutive-serve cap.
func (q *EventPriorityQueue) SetFair(maxConsecutive int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fair = maxConsecutive > 0
	q.maxConsecutive = maxConsecutive
}

// Enqueue appends the event to its tier's FIFO.
func (q *EventPriorityQueue) Enqueue(ev *chain.GameEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity > 0 && q.size >= q.capacity {
		q.dropped++
		return ErrQueueFull
	}
	tier := PriorityFor(ev.Action.Kind)
	q.tiers[tier] = append(q.tiers[tier], ev)
	q.size++
	return nil
}

// Dequeue pops the next event per the queue's mode, or false when empty.
func (q *EventPriorityQueue) Dequeue() (*chain.GameEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	highest := numPriorities
	for t := PriorityCritical; t < numPriorities; t++ {
		if len(q.tiers[t]) > 0 {
			highest = t
			break
		}
	}
	if highest == numPriorities {
		return nil, false
	}

	serve := highest
	if q.fair && highest != PriorityCritical &&
		highest == q.lastTier && q.consecutive >= q.maxConsecutive {
		for t := highest + 1; t < numPriorities; t++ {
			if len(q.tiers[t]) > 0 {
				serve = t
				break
			}
		}
	}

	if serve == q.lastTier {
		q.consecutive++
	} else {
		q.lastTier = serve
		q.consecutive = 1
	}

	ev := q.tiers[serve][0]
	q.tiers[serve] = q.tiers[serve][1:]
	q.size--
	return ev, true
}

// Len is the total number of queued events.
func (q *EventPriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped is how many events were rejected at capacity.
func (q *EventPriorityQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
