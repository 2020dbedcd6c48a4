package chain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"hexempire/internal/random"
)

// GameEvent is one link of a game's history. The id is assigned at sign
// time and is empty before signing; linkage to the predecessor is what
// EventChain enforces, not the event itself.
type GameEvent struct {
	ID          string        `json:"id"`
	GameID      string        `json:"gameId"`
	PlayerID    string        `json:"playerId"`
	PrevEventID string        `json:"prevEventId,omitempty"`
	Turn        uint32        `json:"turn"`
	Sequence    uint32        `json:"sequence"`
	Action      GameAction    `json:"action"`
	Timestamp   int64         `json:"timestamp"`
	Proof       *random.Proof `json:"proof,omitempty"`
}

// NewEvent builds an unsigned event (empty id).
func NewEvent(gameID, playerID, prevEventID string, turn, sequence uint32, action GameAction) *GameEvent {
	return &GameEvent{
		GameID:      gameID,
		PlayerID:    playerID,
		PrevEventID: prevEventID,
		Turn:        turn,
		Sequence:    sequence,
		Action:      action,
		Timestamp:   time.Now().Unix(),
	}
}

// Sign assigns the event id. Signature contents beyond the id are the
// caller's concern; the chain only needs a stable unique id.
func (e *GameEvent) Sign() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
}

// Kind returns the numeric wire kind of the event's action.
func (e *GameEvent) Kind() int {
	return e.Action.EventKind()
}

// Tags produces the wire tag list: game id, player, turn and sequence,
// an optional reply-style reference to the previous event, and the full
// proof as a "cashu" tag when one is attached.
func (e *GameEvent) Tags() [][]string {
	tags := [][]string{
		{"g", e.GameID},
		{"p", e.PlayerID},
		{"turn", strconv.FormatUint(uint64(e.Turn), 10)},
		{"seq", strconv.FormatUint(uint64(e.Sequence), 10)},
	}
	if e.PrevEventID != "" {
		tags = append(tags, []string{"e", e.PrevEventID, "reply"})
	}
	if e.Proof != nil {
		if encoded, err := json.Marshal(e.Proof); err == nil {
			tags = append(tags, []string{"cashu", string(encoded)})
		}
	}
	return tags
}
