package chain

import (
	"errors"
	"testing"

	"hexempire/internal/random"
)

func signedEvent(prev string, turn, seq uint32, action GameAction) *GameEvent {
	e := NewEvent("g1", "p1", prev, turn, seq, action)
	e.Sign()
	return e
}

func proofFor(e *GameEvent) {
	e.Proof = &random.Proof{RandomBytes: make([]byte, random.ProofBytes)}
}

func TestChainAppend(t *testing.T) {
	c := NewEventChain()

	first := signedEvent("", 0, 0, GameAction{Kind: ActionJoinGame})
	if err := c.Add(first); err != nil {
		t.Fatalf("first append failed: %v", err)
	}

	second := signedEvent(first.ID, 0, 1, GameAction{Kind: ActionStartGame})
	if err := c.Add(second); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	if c.Len() != 2 || c.LastID() != second.ID {
		t.Errorf("chain head wrong: len=%d last=%s", c.Len(), c.LastID())
	}
	if err := c.Verify(); err != nil {
		t.Errorf("verify failed on a valid chain: %v", err)
	}
}

func TestChainFirstEventMustHaveNoPrev(t *testing.T) {
	c := NewEventChain()
	e := signedEvent("phantom", 0, 0, GameAction{Kind: ActionJoinGame})
	if err := c.Add(e); !errors.Is(err, ErrInvalidPreviousEvent) {
		t.Errorf("got %v, want ErrInvalidPreviousEvent", err)
	}
	if c.Len() != 0 {
		t.Error("rejected append mutated the chain")
	}
}

func TestChainLinkageEnforced(t *testing.T) {
	c := NewEventChain()
	first := signedEvent("", 0, 0, GameAction{Kind: ActionJoinGame})
	c.Add(first)

	wrong := signedEvent("not-the-head", 0, 1, GameAction{Kind: ActionEndTurn})
	if err := c.Add(wrong); !errors.Is(err, ErrInvalidPreviousEvent) {
		t.Errorf("got %v, want ErrInvalidPreviousEvent", err)
	}

	missing := signedEvent("", 0, 1, GameAction{Kind: ActionEndTurn})
	if err := c.Add(missing); !errors.Is(err, ErrMissingPreviousEvent) {
		t.Errorf("got %v, want ErrMissingPreviousEvent", err)
	}

	if c.Len() != 1 {
		t.Error("rejected appends mutated the chain")
	}
}

func TestChainTurnMonotonic(t *testing.T) {
	c := NewEventChain()
	first := signedEvent("", 5, 0, GameAction{Kind: ActionEndTurn})
	c.Add(first)

	backwards := signedEvent(first.ID, 4, 1, GameAction{Kind: ActionEndTurn})
	if err := c.Add(backwards); !errors.Is(err, ErrInvalidTurnSequence) {
		t.Errorf("got %v, want ErrInvalidTurnSequence", err)
	}
}

func TestChainSequenceStrictlyIncreasesWithinTurn(t *testing.T) {
	c := NewEventChain()
	first := signedEvent("", 2, 3, GameAction{Kind: ActionMoveUnit})
	c.Add(first)

	repeat := signedEvent(first.ID, 2, 3, GameAction{Kind: ActionMoveUnit})
	if err := c.Add(repeat); !errors.Is(err, ErrInvalidSequence) {
		t.Errorf("equal sequence: got %v, want ErrInvalidSequence", err)
	}

	// A new turn may restart the sequence.
	newTurn := signedEvent(first.ID, 3, 0, GameAction{Kind: ActionEndTurn})
	if err := c.Add(newTurn); err != nil {
		t.Errorf("sequence restart on a new turn rejected: %v", err)
	}
}

func TestChainDemandsProofForRandomActions(t *testing.T) {
	c := NewEventChain()
	attack := signedEvent("", 1, 0, GameAction{Kind: ActionAttackUnit, UnitID: "u1", TargetUnitID: "u2"})
	if err := c.Add(attack); !errors.Is(err, ErrMissingRandomnessProof) {
		t.Fatalf("got %v, want ErrMissingRandomnessProof", err)
	}

	proofFor(attack)
	if err := c.Add(attack); err != nil {
		t.Errorf("attack with proof rejected: %v", err)
	}
}

func TestChainRejectsUnsignedAndDuplicate(t *testing.T) {
	c := NewEventChain()
	unsigned := NewEvent("g1", "p1", "", 0, 0, GameAction{Kind: ActionJoinGame})
	if err := c.Add(unsigned); !errors.Is(err, ErrUnsignedEvent) {
		t.Errorf("got %v, want ErrUnsignedEvent", err)
	}

	e := signedEvent("", 0, 0, GameAction{Kind: ActionJoinGame})
	c.Add(e)
	dup := *e
	if err := c.Add(&dup); !errors.Is(err, ErrDuplicateEvent) {
		t.Errorf("got %v, want ErrDuplicateEvent", err)
	}
}

func TestChainGet(t *testing.T) {
	c := NewEventChain()
	e := signedEvent("", 0, 0, GameAction{Kind: ActionJoinGame})
	c.Add(e)

	got, err := c.Get(e.ID)
	if err != nil || got != e {
		t.Errorf("Get(%s) = %v, %v", e.ID, got, err)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("got %v, want ErrEventNotFound", err)
	}
}

func TestRequiresRandomPredicate(t *testing.T) {
	yes := []ActionKind{ActionAttackUnit, ActionAttackCity, ActionCreateGame}
	for _, k := range yes {
		if !(GameAction{Kind: k}).RequiresRandom() {
			t.Errorf("%s should require randomness", k)
		}
	}
	no := []ActionKind{ActionMoveUnit, ActionEndTurn, ActionFoundCity, ActionDeclareWar, ActionRequestRandom}
	for _, k := range no {
		if (GameAction{Kind: k}).RequiresRandom() {
			t.Errorf("%s should not require randomness", k)
		}
	}
}

func TestEventKindConstants(t *testing.T) {
	cases := []struct {
		kind ActionKind
		want int
	}{
		{ActionCreateGame, 30100},
		{ActionJoinGame, 30101},
		{ActionStartGame, 30102},
		{ActionMoveUnit, 30103},
		{ActionFoundCity, 30103},
		{ActionEndTurn, 30104},
		{ActionEndGame, 30105},
		{ActionRequestRandom, 30106},
		{ActionProvideRandom, 30107},
	}
	for _, c := range cases {
		if got := (GameAction{Kind: c.kind}).EventKind(); got != c.want {
			t.Errorf("EventKind(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestEventTags(t *testing.T) {
	e := signedEvent("", 3, 7, GameAction{Kind: ActionMoveUnit})
	e.PrevEventID = "prev-id"
	proofFor(e)

	tags := e.Tags()
	want := map[string]bool{"g": false, "p": false, "turn": false, "seq": false, "e": false, "cashu": false}
	for _, tag := range tags {
		if _, ok := want[tag[0]]; ok {
			want[tag[0]] = true
		}
		if tag[0] == "e" && (len(tag) != 3 || tag[1] != "prev-id" || tag[2] != "reply") {
			t.Errorf("e tag malformed: %v", tag)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("missing %q tag", name)
		}
	}
}
