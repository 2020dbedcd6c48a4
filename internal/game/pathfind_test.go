package game

import (
	"testing"

	"hexempire/internal/world"
)

// flatMap builds a w x h all-grassland map with no wrap.
func flatMap(w, h int) *world.Map {
	m := world.NewMap(w, h, false)
	for q := 0; q < w; q++ {
		for r := 0; r < h; r++ {
			m.SetTile(&world.Tile{Coord: world.HexCoord{Q: q, R: r}, Terrain: world.TerrainGrassland})
		}
	}
	return m
}

func landRules() MovementRules { return MovementRules{Category: CategoryLand} }

func TestFindPathToSelf(t *testing.T) {
	m := flatMap(5, 5)
	p := FindPath(m, world.HexCoord{Q: 2, R: 2}, world.HexCoord{Q: 2, R: 2}, landRules())
	if p == nil {
		t.Fatal("path to self is nil")
	}
	if len(p.Tiles) != 1 || p.Cost != 0 {
		t.Errorf("path to self = %d tiles cost %d, want 1 tile cost 0", len(p.Tiles), p.Cost)
	}
}

// TestFindPathStepsAreAdjacent checks every consecutive pair in a returned
// path is at hex distance exactly 1.
func TestFindPathStepsAreAdjacent(t *testing.T) {
	m := flatMap(8, 8)
	p := FindPath(m, world.HexCoord{Q: 0, R: 0}, world.HexCoord{Q: 6, R: 5}, landRules())
	if p == nil {
		t.Fatal("no path found on an open map")
	}
	for i := 1; i < len(p.Tiles); i++ {
		if d := p.Tiles[i-1].Distance(p.Tiles[i]); d != 1 {
			t.Errorf("step %d jumps distance %d", i, d)
		}
	}
}

func TestFindPathCostMatchesTerrain(t *testing.T) {
	m := flatMap(6, 1)
	// Straight east line, all grassland at cost 10 each.
	p := FindPath(m, world.HexCoord{Q: 0, R: 0}, world.HexCoord{Q: 5, R: 0}, landRules())
	if p == nil {
		t.Fatal("no path")
	}
	if p.Cost != 50 {
		t.Errorf("cost = %d, want 50", p.Cost)
	}
}

func TestFindPathAvoidsImpassable(t *testing.T) {
	m := flatMap(5, 3)
	// Wall of mountains across q=2 cuts the map.
	for r := 0; r < 3; r++ {
		m.TileAt(world.HexCoord{Q: 2, R: r}).Terrain = world.TerrainMountain
	}
	p := FindPath(m, world.HexCoord{Q: 0, R: 1}, world.HexCoord{Q: 4, R: 1}, landRules())
	if p != nil {
		t.Error("found a path through an impassable wall")
	}
}

// TestNavalStaysOnWater checks naval paths never cross land.
func TestNavalStaysOnWater(t *testing.T) {
	m := world.NewMap(6, 3, false)
	for q := 0; q < 6; q++ {
		for r := 0; r < 3; r++ {
			terr := world.TerrainCoast
			if r == 1 && q >= 2 && q <= 3 {
				terr = world.TerrainGrassland
			}
			m.SetTile(&world.Tile{Coord: world.HexCoord{Q: q, R: r}, Terrain: terr})
		}
	}

	p := FindPath(m, world.HexCoord{Q: 0, R: 1}, world.HexCoord{Q: 5, R: 1}, MovementRules{Category: CategoryNaval})
	if p == nil {
		t.Fatal("no naval path around the island")
	}
	for _, c := range p.Tiles {
		if !m.TileAt(c).Terrain.IsWater() {
			t.Errorf("naval path crosses land at %v", c)
		}
	}
}

func TestAirIgnoresTerrain(t *testing.T) {
	m := flatMap(4, 4)
	m.TileAt(world.HexCoord{Q: 1, R: 1}).Terrain = world.TerrainMountain
	p := FindPath(m, world.HexCoord{Q: 0, R: 1}, world.HexCoord{Q: 3, R: 1}, MovementRules{Category: CategoryAir})
	if p == nil {
		t.Fatal("air unit found no path")
	}
	// Every step costs a flat 10 for air.
	if p.Cost != (len(p.Tiles)-1)*MoveCostScale {
		t.Errorf("air cost = %d, want flat %d per step", p.Cost, MoveCostScale)
	}
}

func TestFindReachableRespectsBudget(t *testing.T) {
	m := flatMap(9, 9)
	origin := world.HexCoord{Q: 4, R: 4}
	reached := FindReachable(m, origin, 20, landRules())

	if cost, ok := reached[origin]; !ok || cost != 0 {
		t.Error("origin missing or nonzero cost")
	}
	for c, cost := range reached {
		if cost > 20 {
			t.Errorf("tile %v costs %d over budget", c, cost)
		}
		if origin.Distance(c) > 2 {
			t.Errorf("tile %v at distance %d reached with budget for 2 steps", c, origin.Distance(c))
		}
	}
	// 20 movement buys exactly two grassland steps in all directions.
	if len(reached) != 1+6+12 {
		t.Errorf("reached %d tiles, want 19", len(reached))
	}
}

func TestValidatePath(t *testing.T) {
	m := flatMap(5, 5)
	good := []world.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}, {Q: 2, R: 0}}
	if !ValidatePath(m, good, landRules()) {
		t.Error("legal path rejected")
	}

	gap := []world.HexCoord{{Q: 0, R: 0}, {Q: 3, R: 0}}
	if ValidatePath(m, gap, landRules()) {
		t.Error("disconnected path accepted")
	}

	m.TileAt(world.HexCoord{Q: 1, R: 0}).Terrain = world.TerrainMountain
	if ValidatePath(m, good, landRules()) {
		t.Error("path through impassable tile accepted")
	}

	if ValidatePath(m, nil, landRules()) {
		t.Error("empty path accepted")
	}
}
