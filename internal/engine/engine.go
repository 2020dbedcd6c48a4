// Package engine applies game actions to game state. It is the only
// place state mutation happens: every peer feeds the same event chain
// through the same engine and arrives at the same state.
package engine

import (
	"errors"

	"github.com/sirupsen/logrus"

	"hexempire/internal/chain"
	"hexempire/internal/game"
	"hexempire/internal/random"
)

// Apply failures. Every rejection is one of these (possibly wrapped), so
// callers can branch without string matching.
var (
	ErrWrongPhase           = errors.New("engine: action not valid in this phase")
	ErrNotYourTurn          = errors.New("engine: not this player's turn")
	ErrUnknownPlayer        = errors.New("engine: unknown player")
	ErrUnknownUnit          = errors.New("engine: unknown unit")
	ErrUnknownCity          = errors.New("engine: unknown city")
	ErrNotOwner             = errors.New("engine: entity not owned by player")
	ErrInvalidPath          = errors.New("engine: path is not traversable")
	ErrInsufficientMovement = errors.New("engine: not enough movement")
	ErrTileOccupied         = errors.New("engine: destination tile occupied")
	ErrOutOfRange           = errors.New("engine: target out of range")
	ErrNotAtWar             = errors.New("engine: players are not at war")
	ErrAlreadyAtWar         = errors.New("engine: players already at war")
	ErrInvalidTarget        = errors.New("engine: invalid target")
	ErrMissingProof         = errors.New("engine: action requires a randomness proof")
	ErrMissingPayload       = errors.New("engine: action payload incomplete")
	ErrInsufficientGold     = errors.New("engine: not enough gold")
	ErrUnitExhausted        = errors.New("engine: unit has already acted")
	ErrUnknownAction        = errors.New("engine: unknown action kind")
)

// ActionResult is the outcome of one Apply. On failure the state is
// untouched; on success Effects lists every discrete mutation in the
// order it happened, which is what the sync layer diffs against.
type ActionResult struct {
	Success bool
	Err     error
	Effects []Effect
}

func fail(err error) ActionResult {
	return ActionResult{Err: err}
}

func ok(effects ...Effect) ActionResult {
	return ActionResult{Success: true, Effects: effects}
}

// Engine is stateless apart from its logger; all game data lives in the
// GameState it is handed.
type Engine struct {
	log logrus.FieldLogger
}

// New builds an engine logging through the given logger.
func New(logger logrus.FieldLogger) *Engine {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Engine{log: logger.WithField("component", "engine")}
}

// ApplyEvent validates the event's proof requirement and applies its
// action on behalf of the event's author.
func (e *Engine) ApplyEvent(state *game.GameState, ev *chain.GameEvent) ActionResult {
	if ev.Action.RequiresRandom() && ev.Proof == nil {
		return fail(ErrMissingProof)
	}
	return e.Apply(state, ev.PlayerID, ev.Action, ev.Proof)
}

// Apply executes one action for playerID. The proof is only consulted
// for actions whose outcome depends on randomness; it may be nil for
// everything else.
func (e *Engine) Apply(state *game.GameState, playerID string, action chain.GameAction, proof *random.Proof) ActionResult {
	res := e.dispatch(state, playerID, action, proof)
	if res.Err != nil {
		e.log.WithFields(logrus.Fields{
			"game":   state.GameID,
			"player": playerID,
			"action": action.Kind,
			"error":  res.Err,
		}).Debug("action rejected")
	}
	return res
}

func (e *Engine) dispatch(state *game.GameState, playerID string, action chain.GameAction, proof *random.Proof) ActionResult {
	switch action.Kind {
	case chain.ActionCreateGame:
		return e.applyCreateGame(state, playerID, action, proof)
	case chain.ActionJoinGame:
		return e.applyJoinGame(state, playerID, action)
	case chain.ActionStartGame:
		return e.applyStartGame(state, playerID)
	case chain.ActionEndTurn:
		return e.applyEndTurn(state, playerID)
	case chain.ActionEndGame:
		return e.applyEndGame(state, playerID, action)

	case chain.ActionMoveUnit:
		return e.applyMoveUnit(state, playerID, action)
	case chain.ActionAttackUnit:
		return e.applyAttackUnit(state, playerID, action, proof)
	case chain.ActionAttackCity:
		return e.applyAttackCity(state, playerID, action, proof)
	case chain.ActionFoundCity:
		return e.applyFoundCity(state, playerID, action)
	case chain.ActionFortifyUnit, chain.ActionSleepUnit, chain.ActionWakeUnit,
		chain.ActionDeleteUnit, chain.ActionUpgradeUnit:
		return e.applyUnitOrder(state, playerID, action)

	case chain.ActionBuildImprovement, chain.ActionBuildRoad, chain.ActionRemoveFeature:
		return e.applyWorkerOrder(state, playerID, action)

	case chain.ActionSetProduction, chain.ActionBuyItem, chain.ActionAssignCitizen,
		chain.ActionUnassignCitizen, chain.ActionSellBuilding:
		return e.applyCityOrder(state, playerID, action)

	case chain.ActionSetResearch:
		return e.applySetResearch(state, playerID, action)

	case chain.ActionDeclareWar, chain.ActionProposePeace,
		chain.ActionAcceptPeace, chain.ActionRejectPeace:
		return e.applyDiplomacy(state, playerID, action)

	case chain.ActionRequestRandom:
		return ok(Effect{Kind: EffectRandomRequested, PlayerID: playerID})
	case chain.ActionProvideRandom:
		return ok(Effect{Kind: EffectRandomProvided, PlayerID: playerID})
	}
	return fail(ErrUnknownAction)
}

// Replay rebuilds a game state from scratch by applying every event in
// order. The chain itself must already be linkage-valid; any event the
// engine rejects means the history is corrupt, and replay stops there.
func (e *Engine) Replay(gameID string, seed []byte, events []*chain.GameEvent) (*game.GameState, error) {
	state := game.NewGameState(gameID, seed)
	for i, ev := range events {
		if res := e.ApplyEvent(state, ev); !res.Success {
			return nil, &ReplayError{Index: i, EventID: ev.ID, Cause: res.Err}
		}
	}
	return state, nil
}

// ReplayError pinpoints the event at which replay diverged.
type ReplayError struct {
	Index   int
	EventID string
	Cause   error
}

func (r *ReplayError) Error() string {
	return "engine: replay failed at event " + r.EventID + ": " + r.Cause.Error()
}

func (r *ReplayError) Unwrap() error { return r.Cause }

// requireCurrent checks that the game is active and it is playerID's
// turn. Shared by every in-game action.
func (e *Engine) requireCurrent(state *game.GameState, playerID string) error {
	if state.Phase != game.PhaseActive {
		return ErrWrongPhase
	}
	cur := state.CurrentPlayer()
	if cur == nil || cur.ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}
