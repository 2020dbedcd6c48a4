// Package chain defines the action vocabulary, the signed game event, and
// the append-only event chain that forms a game's authoritative history.
package chain

import (
	"hexempire/internal/game"
	"hexempire/internal/world"
)

// ActionKind tags a GameAction. The vocabulary is closed; adding an
// action means extending the tag set, the kind mapping, and the engine's
// apply switch.
type ActionKind string

const (
	// Lifecycle.
	ActionCreateGame ActionKind = "create_game"
	ActionJoinGame   ActionKind = "join_game"
	ActionStartGame  ActionKind = "start_game"
	ActionEndTurn    ActionKind = "end_turn"
	ActionEndGame    ActionKind = "end_game"

	// Unit actions.
	ActionMoveUnit    ActionKind = "move_unit"
	ActionAttackUnit  ActionKind = "attack_unit"
	ActionAttackCity  ActionKind = "attack_city"
	ActionFoundCity   ActionKind = "found_city"
	ActionFortifyUnit ActionKind = "fortify_unit"
	ActionSleepUnit   ActionKind = "sleep_unit"
	ActionWakeUnit    ActionKind = "wake_unit"
	ActionDeleteUnit  ActionKind = "delete_unit"
	ActionUpgradeUnit ActionKind = "upgrade_unit"

	// Worker actions.
	ActionBuildImprovement ActionKind = "build_improvement"
	ActionBuildRoad        ActionKind = "build_road"
	ActionRemoveFeature    ActionKind = "remove_feature"

	// City actions.
	ActionSetProduction   ActionKind = "set_production"
	ActionBuyItem         ActionKind = "buy_item"
	ActionAssignCitizen   ActionKind = "assign_citizen"
	ActionUnassignCitizen ActionKind = "unassign_citizen"
	ActionSellBuilding    ActionKind = "sell_building"

	// Research.
	ActionSetResearch ActionKind = "set_research"

	// Diplomacy.
	ActionDeclareWar   ActionKind = "declare_war"
	ActionProposePeace ActionKind = "propose_peace"
	ActionAcceptPeace  ActionKind = "accept_peace"
	ActionRejectPeace  ActionKind = "reject_peace"

	// Randomness handshake.
	ActionRequestRandom ActionKind = "request_random"
	ActionProvideRandom ActionKind = "provide_random"
)

// GameAction is one state mutation. Only the fields relevant to the kind
// are populated; everything else stays zero.
type GameAction struct {
	Kind ActionKind `json:"kind"`

	// Lifecycle.
	Settings   *game.GameSettings `json:"settings,omitempty"`
	WinnerID   string             `json:"winnerId,omitempty"`
	PlayerName string             `json:"playerName,omitempty"`

	// Unit / city targeting.
	UnitID       string           `json:"unitId,omitempty"`
	TargetUnitID string           `json:"targetUnitId,omitempty"`
	CityID       string           `json:"cityId,omitempty"`
	Position     *world.HexCoord  `json:"position,omitempty"`
	Path         []world.HexCoord `json:"path,omitempty"`
	CityName     string           `json:"cityName,omitempty"`
	UnitType     *game.UnitType   `json:"unitType,omitempty"`

	// Worker payloads.
	Improvement *world.Improvement `json:"improvement,omitempty"`
	Road        *world.Road        `json:"road,omitempty"`

	// City payloads.
	Production *game.ProductionItem `json:"production,omitempty"`
	Building   *game.BuildingType   `json:"building,omitempty"`

	// Research and diplomacy.
	Tech           *game.TechType `json:"tech,omitempty"`
	TargetPlayerID string         `json:"targetPlayerId,omitempty"`

	// Randomness handshake payloads.
	RandomContext []byte `json:"randomContext,omitempty"`
	RandomBytes   []byte `json:"randomBytes,omitempty"`
}

// RequiresRandom is the pure predicate the chain validator uses to demand
// a populated proof: true only for the actions whose outcome depends on
// an unbiased scalar.
func (a GameAction) RequiresRandom() bool {
	switch a.Kind {
	case ActionAttackUnit, ActionAttackCity, ActionCreateGame:
		return true
	}
	return false
}

// Numeric wire kinds. Existing event logs use these exact values; any
// implementation interoperating with them must reproduce them.
const (
	KindCreateGame     = 30100
	KindJoinGame       = 30101
	KindStartGame      = 30102
	KindGameAction     = 30103
	KindTurnEnd        = 30104
	KindGameEnd        = 30105
	KindRandomnessReq  = 30106
	KindRandomnessResp = 30107
)

// EventKind maps the action to its numeric wire kind. Most gameplay
// actions share the generic kind; lifecycle and randomness actions have
// dedicated ones.
func (a GameAction) EventKind() int {
	switch a.Kind {
	case ActionCreateGame:
		return KindCreateGame
	case ActionJoinGame:
		return KindJoinGame
	case ActionStartGame:
		return KindStartGame
	case ActionEndTurn:
		return KindTurnEnd
	case ActionEndGame:
		return KindGameEnd
	case ActionRequestRandom:
		return KindRandomnessReq
	case ActionProvideRandom:
		return KindRandomnessResp
	}
	return KindGameAction
}
