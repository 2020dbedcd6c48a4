package engine

import (
	"sort"

	"hexempire/internal/game"
	"hexempire/internal/world"
)

// Healing per skipped turn: more in own territory.
const (
	healInTerritory = 10
	healOutside     = 5
)

func (e *Engine) applyEndTurn(state *game.GameState, playerID string) ActionResult {
	if err := e.requireCurrent(state, playerID); err != nil {
		return fail(err)
	}
	p := state.PlayerByID(playerID)
	var effects []Effect

	science, gold := 0, 0
	for _, city := range state.CitiesOf(playerID) {
		yields := city.TileYields(state.Map)
		turn := city.ProcessTurn(yields)
		science += yields.Science
		gold += yields.Gold

		if turn.Grew {
			effects = append(effects, Effect{Kind: EffectCityGrew, PlayerID: playerID, CityID: city.ID, Amount: city.Population})
		}
		if turn.Starved {
			effects = append(effects, Effect{Kind: EffectCityStarved, PlayerID: playerID, CityID: city.ID, Amount: city.Population})
		}
		if turn.CompletedProduction != nil {
			done := *turn.CompletedProduction
			effects = append(effects, Effect{Kind: EffectProductionCompleted, PlayerID: playerID, CityID: city.ID, Detail: productionName(done)})
			// ProcessTurn already installed buildings; units still need
			// to be spawned into the world.
			if done.Kind == game.ProduceUnit {
				u := game.NewUnit(state.NewEntityID("unit"), playerID, done.Unit, city.Position)
				state.AddUnit(u)
				pos := city.Position
				effects = append(effects, Effect{Kind: EffectUnitCreated, PlayerID: playerID, UnitID: u.ID, Position: &pos, Detail: done.Unit.String()})
			}
		}
		if turn.BordersExpanded {
			if coord, found := e.nextBorderTile(state, city); found {
				city.ExpandBorders([]world.HexCoord{coord})
				state.Map.TileAt(coord).OwnerID = playerID
				effects = append(effects, Effect{Kind: EffectBordersExpanded, PlayerID: playerID, CityID: city.ID, Position: &coord})
			}
		}
	}

	p.Treasury += gold
	if completed := p.AddScience(science); completed != nil {
		effects = append(effects, Effect{Kind: EffectTechCompleted, PlayerID: playerID, Detail: completed.String()})
	}

	for _, u := range state.UnitsOf(playerID) {
		if !u.HasActed && u.Health < 100 {
			heal := healOutside
			if tile := state.Map.TileAt(u.Position); tile != nil && tile.OwnerID == playerID {
				heal = healInTerritory
			}
			u.Heal(heal)
		}
		u.ResetForTurn()
	}

	e.refreshScore(state, p)
	state.AdvanceToNextPlayer()

	effects = append(effects, Effect{Kind: EffectTurnEnded, PlayerID: playerID, Amount: int(state.Turn)})
	return ok(effects...)
}

// nextBorderTile picks the tile a growing city claims next: the unowned
// in-bounds tile adjacent to its territory that is closest to the center,
// with coordinate order breaking ties. Deterministic by construction.
func (e *Engine) nextBorderTile(state *game.GameState, city *game.City) (world.HexCoord, bool) {
	owned := make([]world.HexCoord, 0, len(city.Territory))
	for coord := range city.Territory {
		owned = append(owned, coord)
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Less(owned[j]) })

	var best world.HexCoord
	bestDist := -1
	seen := make(map[world.HexCoord]bool)
	for _, coord := range owned {
		for _, n := range state.Map.Neighbors(coord) {
			if seen[n] || city.Territory[n] {
				continue
			}
			seen[n] = true
			tile := state.Map.TileAt(n)
			if tile == nil || tile.OwnerID != "" {
				continue
			}
			d := wrappedDistance(state.Map, city.Position, n)
			if bestDist == -1 || d < bestDist || (d == bestDist && n.Less(best)) {
				best, bestDist = n, d
			}
		}
	}
	return best, bestDist != -1
}

// refreshScore recomputes the holdings-derived score components from the
// actual state, so captures and losses can never leave a stale total.
func (e *Engine) refreshScore(state *game.GameState, p *game.Player) {
	cities := state.CitiesOf(p.ID)
	pop := 0
	for _, c := range cities {
		pop += c.Population
	}
	land := 0
	for _, coord := range state.Map.SortedCoords() {
		if state.Map.TileAt(coord).OwnerID == p.ID {
			land++
		}
	}
	p.UpdateScore(func(s *game.ScoreBreakdown) {
		s.Cities = len(cities)
		s.Population = pop
		s.Land = land
		s.Spaceship = p.SpaceshipProgress
	})
}
