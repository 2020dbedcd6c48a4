package engine

import (
	"fmt"

	"hexempire/internal/chain"
	"hexempire/internal/game"
	"hexempire/internal/random"
	"hexempire/internal/world"
)

// minCityDistance is the smallest allowed spacing between city centers.
const minCityDistance = 3

// upgradeCostFactor converts a production-cost difference into gold.
const upgradeCostFactor = 2

// ownedUnit resolves a unit that must exist and belong to playerID.
func (e *Engine) ownedUnit(state *game.GameState, playerID, unitID string) (*game.Unit, error) {
	if err := e.requireCurrent(state, playerID); err != nil {
		return nil, err
	}
	u, found := state.Units[unitID]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, unitID)
	}
	if u.OwnerID != playerID {
		return nil, ErrNotOwner
	}
	return u, nil
}

// wrappedDistance is hex distance respecting horizontal wrap.
func wrappedDistance(m *world.Map, a, b world.HexCoord) int {
	d := a.Distance(b)
	if !m.WrapX {
		return d
	}
	for _, shift := range []int{-m.Width, m.Width} {
		alt := a.Distance(world.HexCoord{Q: b.Q + shift, R: b.R})
		if alt < d {
			d = alt
		}
	}
	return d
}

func (e *Engine) applyMoveUnit(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	u, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	if len(action.Path) < 2 {
		return fail(ErrInvalidPath)
	}
	if state.Map.WrapCoord(action.Path[0]) != u.Position {
		return fail(ErrInvalidPath)
	}
	rules := game.RulesFor(u)
	if !game.ValidatePath(state.Map, action.Path, rules) {
		return fail(ErrInvalidPath)
	}

	cost := 0
	for _, step := range action.Path[1:] {
		tile := state.Map.TileAt(step)
		cost += rules.StepCost(tile)
	}
	if cost > u.Movement {
		return fail(ErrInsufficientMovement)
	}

	dest := state.Map.WrapCoord(action.Path[len(action.Path)-1])
	if other := state.UnitAt(dest); other != nil && other.ID != u.ID {
		return fail(ErrTileOccupied)
	}

	u.Position = dest
	u.Movement -= cost
	u.HasActed = true
	u.FortifyTurns = 0
	u.Sleeping = false

	owner := state.PlayerByID(playerID)
	for _, step := range action.Path {
		e.explore(state, owner, state.Map.WrapCoord(step), 1)
	}

	return ok(Effect{Kind: EffectUnitMoved, PlayerID: playerID, UnitID: u.ID, Position: &dest, Amount: cost})
}

// attackRange is how far the unit can strike: its ranged reach, or 1.
func attackRange(u *game.Unit) (reach int, ranged bool) {
	stats := u.Type.Stats()
	if stats.Range > 0 && stats.RangedStrength > 0 {
		return stats.Range, true
	}
	return 1, false
}

func (e *Engine) applyAttackUnit(state *game.GameState, playerID string, action chain.GameAction, proof *random.Proof) ActionResult {
	attacker, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	if proof == nil {
		return fail(ErrMissingProof)
	}
	defender, found := state.Units[action.TargetUnitID]
	if !found {
		return fail(fmt.Errorf("%w: %s", ErrUnknownUnit, action.TargetUnitID))
	}
	if defender.OwnerID == playerID {
		return fail(ErrInvalidTarget)
	}
	if !state.AtWar(playerID, defender.OwnerID) {
		return fail(ErrNotAtWar)
	}
	if attacker.HasActed || attacker.Movement <= 0 {
		return fail(ErrUnitExhausted)
	}

	reach, ranged := attackRange(attacker)
	dist := wrappedDistance(state.Map, attacker.Position, defender.Position)
	if dist > reach {
		return fail(ErrOutOfRange)
	}

	result := game.ResolveCombat(
		attacker, defender,
		state.Map.TileAt(attacker.Position),
		state.Map.TileAt(defender.Position),
		proof.Scalar(), ranged,
	)

	effects := []Effect{{
		Kind: EffectUnitDamaged, PlayerID: defender.OwnerID,
		UnitID: defender.ID, Amount: result.DefenderDamage,
	}}
	defender.Health -= result.DefenderDamage
	attacker.Health -= result.AttackerDamage
	if result.AttackerDamage > 0 {
		effects = append(effects, Effect{
			Kind: EffectUnitDamaged, PlayerID: playerID,
			UnitID: attacker.ID, Amount: result.AttackerDamage,
		})
	}
	attacker.Experience += result.AttackerXP
	defender.Experience += result.DefenderXP

	defenderPos := defender.Position
	if result.DefenderDestroyed {
		state.RemoveUnit(defender.ID)
		effects = append(effects, Effect{
			Kind: EffectUnitDestroyed, PlayerID: defender.OwnerID, UnitID: defender.ID,
		})
	}
	if result.AttackerDestroyed {
		state.RemoveUnit(attacker.ID)
		effects = append(effects, Effect{
			Kind: EffectUnitDestroyed, PlayerID: playerID, UnitID: attacker.ID,
		})
	} else {
		attacker.HasActed = true
		attacker.Movement = 0
		attacker.FortifyTurns = 0
		// A melee kill advances into the vacated tile.
		if result.DefenderDestroyed && !ranged {
			attacker.Position = defenderPos
			effects = append(effects, Effect{
				Kind: EffectUnitMoved, PlayerID: playerID,
				UnitID: attacker.ID, Position: &defenderPos,
			})
		}
	}
	return ok(effects...)
}

func (e *Engine) applyAttackCity(state *game.GameState, playerID string, action chain.GameAction, proof *random.Proof) ActionResult {
	attacker, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	if proof == nil {
		return fail(ErrMissingProof)
	}
	city, found := state.Cities[action.CityID]
	if !found {
		return fail(fmt.Errorf("%w: %s", ErrUnknownCity, action.CityID))
	}
	if city.OwnerID == playerID {
		return fail(ErrInvalidTarget)
	}
	if !state.AtWar(playerID, city.OwnerID) {
		return fail(ErrNotAtWar)
	}
	if attacker.HasActed || attacker.Movement <= 0 {
		return fail(ErrUnitExhausted)
	}

	reach, ranged := attackRange(attacker)
	if wrappedDistance(state.Map, attacker.Position, city.Position) > reach {
		return fail(ErrOutOfRange)
	}
	if garrison := state.UnitAt(city.Position); garrison != nil && garrison.OwnerID != playerID {
		return fail(fmt.Errorf("%w: city is garrisoned", ErrInvalidTarget))
	}

	result := game.ResolveCityCombat(attacker, city,
		state.Map.TileAt(city.Position), proof.Scalar(), ranged)

	city.Health -= result.DefenderDamage
	if city.Health < 1 {
		city.Health = 1
	}
	attacker.Health -= result.AttackerDamage
	attacker.Experience += result.AttackerXP

	effects := []Effect{{
		Kind: EffectCityDamaged, PlayerID: city.OwnerID,
		CityID: city.ID, Amount: result.DefenderDamage,
	}}
	if result.AttackerDamage > 0 {
		effects = append(effects, Effect{
			Kind: EffectUnitDamaged, PlayerID: playerID,
			UnitID: attacker.ID, Amount: result.AttackerDamage,
		})
	}
	if result.AttackerDestroyed {
		state.RemoveUnit(attacker.ID)
		return ok(append(effects, Effect{
			Kind: EffectUnitDestroyed, PlayerID: playerID, UnitID: attacker.ID,
		})...)
	}
	attacker.HasActed = true
	attacker.Movement = 0
	attacker.FortifyTurns = 0

	if result.CityCaptured {
		prevOwner := city.OwnerID
		city.OwnerID = playerID
		city.Health = city.MaxHealth / 4
		cityPos := city.Position
		attacker.Position = cityPos
		for coord := range city.Territory {
			if t := state.Map.TileAt(coord); t != nil && t.OwnerID == prevOwner {
				t.OwnerID = playerID
			}
		}
		effects = append(effects,
			Effect{Kind: EffectCityCaptured, PlayerID: playerID, TargetID: prevOwner, CityID: city.ID},
			Effect{Kind: EffectUnitMoved, PlayerID: playerID, UnitID: attacker.ID, Position: &cityPos},
		)
		if loser := state.PlayerByID(prevOwner); loser != nil && len(state.CitiesOf(prevOwner)) == 0 {
			loser.Eliminated = true
			effects = append(effects, Effect{Kind: EffectPlayerEliminated, PlayerID: prevOwner})
		}
	}
	return ok(effects...)
}

func (e *Engine) applyFoundCity(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	settler, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	if settler.Type != game.UnitSettler {
		return fail(fmt.Errorf("%w: only settlers found cities", ErrInvalidTarget))
	}
	tile := state.Map.TileAt(settler.Position)
	if tile == nil || tile.Terrain.IsWater() || tile.Terrain.IsImpassable() {
		return fail(fmt.Errorf("%w: unbuildable tile", ErrInvalidTarget))
	}
	if tile.OwnerID != "" && tile.OwnerID != playerID {
		return fail(fmt.Errorf("%w: foreign territory", ErrInvalidTarget))
	}
	for _, id := range state.SortedCityIDs() {
		if wrappedDistance(state.Map, state.Cities[id].Position, settler.Position) < minCityDistance {
			return fail(fmt.Errorf("%w: too close to %s", ErrInvalidTarget, state.Cities[id].Name))
		}
	}

	owner := state.PlayerByID(playerID)
	capital := len(state.CitiesOf(playerID)) == 0
	name := action.CityName
	if name == "" {
		name = fmt.Sprintf("%s city %d", owner.Name, len(state.CitiesOf(playerID))+1)
	}

	city := game.NewCity(state.NewEntityID("city"), playerID, name, settler.Position, capital)
	state.AddCity(city)
	if capital {
		owner.CapitalCityID = city.ID
	}
	for coord := range city.Territory {
		if t := state.Map.TileAt(coord); t != nil && t.OwnerID == "" {
			t.OwnerID = playerID
			if coord == city.Position {
				t.CityID = city.ID
			}
		}
	}
	state.RemoveUnit(settler.ID)
	e.explore(state, owner, city.Position, 2)
	e.refreshScore(state, owner)

	pos := city.Position
	return ok(
		Effect{Kind: EffectUnitDeleted, PlayerID: playerID, UnitID: settler.ID},
		Effect{Kind: EffectCityFounded, PlayerID: playerID, CityID: city.ID, Position: &pos, Detail: name},
	)
}

func (e *Engine) applyUnitOrder(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	u, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	switch action.Kind {
	case chain.ActionFortifyUnit:
		if u.Type.Stats().CombatStrength == 0 {
			return fail(fmt.Errorf("%w: civilians cannot fortify", ErrInvalidTarget))
		}
		u.FortifyTurns = 1
		u.Sleeping = false
		return ok(Effect{Kind: EffectUnitFortified, PlayerID: playerID, UnitID: u.ID})

	case chain.ActionSleepUnit:
		u.Sleeping = true
		u.FortifyTurns = 0
		return ok(Effect{Kind: EffectUnitSlept, PlayerID: playerID, UnitID: u.ID})

	case chain.ActionWakeUnit:
		u.Sleeping = false
		u.FortifyTurns = 0
		return ok(Effect{Kind: EffectUnitWoke, PlayerID: playerID, UnitID: u.ID})

	case chain.ActionDeleteUnit:
		state.RemoveUnit(u.ID)
		return ok(Effect{Kind: EffectUnitDeleted, PlayerID: playerID, UnitID: u.ID})

	case chain.ActionUpgradeUnit:
		if action.UnitType == nil {
			return fail(ErrMissingPayload)
		}
		target := *action.UnitType
		if target.Stats().Category != u.Type.Stats().Category {
			return fail(fmt.Errorf("%w: cannot change unit category", ErrInvalidTarget))
		}
		cost := (target.Stats().Cost - u.Type.Stats().Cost) * upgradeCostFactor
		if cost <= 0 {
			return fail(fmt.Errorf("%w: not an upgrade", ErrInvalidTarget))
		}
		owner := state.PlayerByID(playerID)
		if owner.Treasury < cost {
			return fail(ErrInsufficientGold)
		}
		owner.Treasury -= cost
		u.Type = target
		u.Movement = 0
		u.HasActed = true
		return ok(Effect{Kind: EffectUnitUpgraded, PlayerID: playerID, UnitID: u.ID, Amount: cost, Detail: target.String()})
	}
	return fail(ErrUnknownAction)
}

func (e *Engine) applyWorkerOrder(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	u, err := e.ownedUnit(state, playerID, action.UnitID)
	if err != nil {
		return fail(err)
	}
	if u.Type != game.UnitWorker {
		return fail(fmt.Errorf("%w: only workers build", ErrInvalidTarget))
	}
	if u.HasActed {
		return fail(ErrUnitExhausted)
	}
	tile := state.Map.TileAt(u.Position)
	if tile == nil || tile.Terrain.IsWater() || tile.Terrain.IsImpassable() {
		return fail(fmt.Errorf("%w: unworkable tile", ErrInvalidTarget))
	}
	if tile.OwnerID != "" && tile.OwnerID != playerID {
		return fail(fmt.Errorf("%w: foreign territory", ErrInvalidTarget))
	}

	var eff Effect
	switch action.Kind {
	case chain.ActionBuildImprovement:
		if action.Improvement == nil {
			return fail(ErrMissingPayload)
		}
		tile.Improvement = *action.Improvement
		eff = Effect{Kind: EffectImprovementBuilt, Detail: action.Improvement.String()}
	case chain.ActionBuildRoad:
		if action.Road == nil {
			return fail(ErrMissingPayload)
		}
		tile.Road = *action.Road
		eff = Effect{Kind: EffectRoadBuilt, Detail: action.Road.String()}
	case chain.ActionRemoveFeature:
		if tile.Feature == world.FeatureNone {
			return fail(fmt.Errorf("%w: nothing to remove", ErrInvalidTarget))
		}
		removed := tile.Feature
		tile.Feature = world.FeatureNone
		eff = Effect{Kind: EffectFeatureRemoved, Detail: removed.String()}
	default:
		return fail(ErrUnknownAction)
	}

	u.HasActed = true
	u.Movement = 0
	pos := u.Position
	eff.PlayerID = playerID
	eff.UnitID = u.ID
	eff.Position = &pos
	return ok(eff)
}
