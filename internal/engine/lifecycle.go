package engine

import (
	"fmt"

	"hexempire/internal/chain"
	"hexempire/internal/game"
	"hexempire/internal/random"
	"hexempire/internal/world"
	"hexempire/internal/world/mapgen"
)

// Starting loadout for every seat.
var startingUnits = []game.UnitType{game.UnitSettler, game.UnitWarrior}

// Palette assigned to seats in join order.
var seatColors = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f",
	"#9b59b6", "#e67e22", "#1abc9c", "#95a5a6",
}

func (e *Engine) applyCreateGame(state *game.GameState, playerID string, action chain.GameAction, proof *random.Proof) ActionResult {
	if state.Phase != game.PhaseLobby || state.Map != nil {
		return fail(ErrWrongPhase)
	}
	if action.Settings == nil {
		return fail(ErrMissingPayload)
	}
	if err := action.Settings.Validate(); err != nil {
		return fail(err)
	}
	if proof == nil || len(proof.RandomBytes) != random.SeedSize {
		return fail(ErrMissingProof)
	}

	// The proof's bytes are the map seed, so no single player picks the
	// terrain.
	var seed [random.SeedSize]byte
	copy(seed[:], proof.RandomBytes)

	settings := *action.Settings
	gen := mapgen.NewGenerator(seed, mapgen.Config{
		Width:           settings.MapWidth,
		Height:          settings.MapHeight,
		WrapX:           settings.WrapX,
		WaterPercentage: settings.WaterPercentage,
		Players:         settings.NumPlayers,
	})
	result, err := gen.Generate()
	if err != nil {
		return fail(err)
	}

	state.Settings = &settings
	state.Seed = proof.RandomBytes
	state.Map = result.Map
	state.StartPositions = result.StartPositions

	effects := []Effect{{Kind: EffectGameCreated, PlayerID: playerID, Detail: settings.Name}}
	effects = append(effects, e.addPlayer(state, playerID, action.PlayerName)...)
	return ok(effects...)
}

func (e *Engine) applyJoinGame(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	if state.Phase != game.PhaseLobby {
		return fail(ErrWrongPhase)
	}
	if state.PlayerByID(playerID) != nil {
		return fail(fmt.Errorf("%w: %s already joined", ErrInvalidTarget, playerID))
	}
	if state.Settings != nil && len(state.Players) >= state.Settings.NumPlayers {
		return fail(game.ErrTooManyPlayers)
	}
	return ok(e.addPlayer(state, playerID, action.PlayerName)...)
}

func (e *Engine) addPlayer(state *game.GameState, playerID, name string) []Effect {
	if name == "" {
		name = playerID
	}
	color := seatColors[len(state.Players)%len(seatColors)]
	p := game.NewPlayer(playerID, playerID, name, "", color)
	state.AddPlayer(p)
	return []Effect{{Kind: EffectPlayerJoined, PlayerID: playerID, Detail: name}}
}

func (e *Engine) applyStartGame(state *game.GameState, playerID string) ActionResult {
	if state.Phase != game.PhaseLobby || state.Map == nil {
		return fail(ErrWrongPhase)
	}
	if len(state.Players) < game.MinPlayers {
		return fail(game.ErrTooFewPlayers)
	}
	if len(state.StartPositions) < len(state.Players) {
		return fail(fmt.Errorf("%w: %d start positions for %d players",
			game.ErrMapTooSmallForPlayers, len(state.StartPositions), len(state.Players)))
	}
	if state.PlayerByID(playerID) == nil {
		return fail(ErrUnknownPlayer)
	}

	effects := []Effect{{Kind: EffectGameStarted, PlayerID: playerID}}
	for i, p := range state.Players {
		pos := state.StartPositions[i]
		for _, t := range startingUnits {
			u := game.NewUnit(state.NewEntityID("unit"), p.ID, t, pos)
			state.AddUnit(u)
			effects = append(effects, Effect{
				Kind: EffectUnitCreated, PlayerID: p.ID, UnitID: u.ID,
				Position: &pos, Detail: t.String(),
			})
		}
		e.explore(state, p, pos, 2)
	}

	state.Phase = game.PhaseActive
	state.Turn = 1
	state.CurrentPlayerIndex = 0
	return ok(effects...)
}

func (e *Engine) applyEndGame(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	if state.Phase != game.PhaseActive {
		return fail(ErrWrongPhase)
	}
	if action.WinnerID != "" && state.PlayerByID(action.WinnerID) == nil {
		return fail(ErrUnknownPlayer)
	}
	state.Phase = game.PhaseEnded
	state.WinnerID = action.WinnerID
	return ok(Effect{Kind: EffectGameEnded, PlayerID: playerID, TargetID: action.WinnerID})
}

// explore reveals the tiles within radius of center to the player.
func (e *Engine) explore(state *game.GameState, p *game.Player, center world.HexCoord, radius int) {
	for _, c := range state.Map.TilesWithin(center, radius) {
		p.Explore(c)
	}
}
