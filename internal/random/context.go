package random

import (
	"encoding/json"
	"fmt"
)

// ContextKind tags the game fact a randomness request is bound to.
type ContextKind string

const (
	ContextMapGeneration  ContextKind = "map_generation"
	ContextCombat         ContextKind = "combat"
	ContextExploration    ContextKind = "exploration"
	ContextBarbarianSpawn ContextKind = "barbarian_spawn"
	ContextGameEvent      ContextKind = "game_event"
)

// Context binds a randomness request to specific game facts so a proof for
// one event cannot be replayed against another. Only the fields relevant
// to the kind are populated.
type Context struct {
	Kind       ContextKind `json:"kind"`
	GameID     string      `json:"gameId"`
	Turn       uint32      `json:"turn,omitempty"`
	AttackerID string      `json:"attackerId,omitempty"`
	DefenderID string      `json:"defenderId,omitempty"`
	HexQ       int         `json:"hexQ,omitempty"`
	HexR       int         `json:"hexR,omitempty"`
	EventType  string      `json:"eventType,omitempty"`
}

// MapGenerationContext binds a request to a game's map generation.
func MapGenerationContext(gameID string) Context {
	return Context{Kind: ContextMapGeneration, GameID: gameID}
}

// CombatContext binds a request to one combat exchange.
func CombatContext(gameID string, turn uint32, attackerID, defenderID string) Context {
	return Context{Kind: ContextCombat, GameID: gameID, Turn: turn, AttackerID: attackerID, DefenderID: defenderID}
}

// ExplorationContext binds a request to a tile reveal.
func ExplorationContext(gameID string, turn uint32, q, r int) Context {
	return Context{Kind: ContextExploration, GameID: gameID, Turn: turn, HexQ: q, HexR: r}
}

// BarbarianSpawnContext binds a request to a turn's barbarian spawn roll.
func BarbarianSpawnContext(gameID string, turn uint32) Context {
	return Context{Kind: ContextBarbarianSpawn, GameID: gameID, Turn: turn}
}

// GameEventContext binds a request to an arbitrary typed event.
func GameEventContext(gameID string, turn uint32, eventType string) Context {
	return Context{Kind: ContextGameEvent, GameID: gameID, Turn: turn, EventType: eventType}
}

// Serialize produces the stable JSON encoding of the context. The same
// encoding is used on the wire and as the manager's cache key, so two
// structurally equal contexts always serialize identically.
func (c Context) Serialize() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("serialize randomness context: %w", err)
	}
	return data, nil
}
