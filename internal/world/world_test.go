package world

import "testing"

// TestYieldsAlgebra checks the additive-group behavior of the yield tuple.
func TestYieldsAlgebra(t *testing.T) {
	a := NewYields(2, 3, -1, 4, 0)
	b := NewYields(1, -2, 5, 0, 7)

	if got := a.Add(ZeroYields()); got != a {
		t.Errorf("zero is not the additive identity: got %+v", got)
	}
	if a.Add(b) != b.Add(a) {
		t.Error("Add is not commutative")
	}
	if got := a.Add(b).Sub(b); got != a {
		t.Errorf("(a+b)-b != a: got %+v", got)
	}
	if got := a.Scale(3); got != a.Add(a).Add(a) {
		t.Errorf("Scale(3) != a+a+a: got %+v", got)
	}
}

// TestYieldsClampNonNegative checks clamping is idempotent and never leaves
// a negative component.
func TestYieldsClampNonNegative(t *testing.T) {
	y := NewYields(-5, 3, -1, 0, 2).ClampNonNegative()
	if y.Food != 0 || y.Gold != 0 {
		t.Errorf("negative components survived clamp: %+v", y)
	}
	if y.Production != 3 || y.Culture != 2 {
		t.Errorf("positive components changed: %+v", y)
	}
	if y.ClampNonNegative() != y {
		t.Error("clamp is not idempotent")
	}
}

func TestHexDistance(t *testing.T) {
	cases := []struct {
		a, b HexCoord
		want int
	}{
		{HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{HexCoord{0, 0}, HexCoord{1, 0}, 1},
		{HexCoord{0, 0}, HexCoord{0, -3}, 3},
		{HexCoord{2, -1}, HexCoord{-1, 2}, 3},
		{HexCoord{-2, -2}, HexCoord{2, 2}, 8},
	}
	for _, c := range cases {
		if got := c.a.Distance(c.b); got != c.want {
			t.Errorf("Distance(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := c.b.Distance(c.a); got != c.want {
			t.Errorf("Distance is not symmetric for (%v, %v)", c.a, c.b)
		}
	}
}

func TestHexNeighborsAreAdjacent(t *testing.T) {
	center := HexCoord{Q: 3, R: -2}
	seen := map[HexCoord]bool{}
	for _, n := range center.Neighbors() {
		if center.Distance(n) != 1 {
			t.Errorf("neighbor %v is at distance %d", n, center.Distance(n))
		}
		if seen[n] {
			t.Errorf("duplicate neighbor %v", n)
		}
		seen[n] = true
	}
	if len(seen) != 6 {
		t.Errorf("expected 6 distinct neighbors, got %d", len(seen))
	}
}

func TestMapWrapCoordIdempotent(t *testing.T) {
	m := NewMap(10, 8, true)
	c := HexCoord{Q: -3, R: 4}
	once := m.WrapCoord(c)
	if once.Q != 7 || once.R != 4 {
		t.Fatalf("WrapCoord(%v) = %v, want {7 4}", c, once)
	}
	if twice := m.WrapCoord(once); twice != once {
		t.Errorf("WrapCoord is not idempotent: %v -> %v", once, twice)
	}
}

func TestMapNeighborsExcludeOutOfBounds(t *testing.T) {
	m := NewMap(4, 4, false)
	for q := 0; q < 4; q++ {
		for r := 0; r < 4; r++ {
			m.SetTile(&Tile{Coord: HexCoord{Q: q, R: r}, Terrain: TerrainGrassland})
		}
	}

	corner := m.Neighbors(HexCoord{Q: 0, R: 0})
	if len(corner) >= 6 {
		t.Errorf("corner tile should have fewer than 6 neighbors, got %d", len(corner))
	}
	for _, n := range corner {
		if !m.InBounds(n) {
			t.Errorf("neighbor %v is out of bounds", n)
		}
	}

	// With wrap enabled the west edge gains its wrapped neighbors back.
	wrapped := NewMap(4, 4, true)
	for q := 0; q < 4; q++ {
		for r := 0; r < 4; r++ {
			wrapped.SetTile(&Tile{Coord: HexCoord{Q: q, R: r}, Terrain: TerrainGrassland})
		}
	}
	if len(wrapped.Neighbors(HexCoord{Q: 0, R: 1})) <= len(m.Neighbors(HexCoord{Q: 0, R: 1})) {
		t.Error("wrapping should add neighbors on the west edge")
	}
}

func TestMapSortedCoordsIsOrdered(t *testing.T) {
	m := NewMap(5, 5, false)
	for q := 4; q >= 0; q-- {
		for r := 4; r >= 0; r-- {
			m.SetTile(&Tile{Coord: HexCoord{Q: q, R: r}})
		}
	}
	coords := m.SortedCoords()
	if len(coords) != 25 {
		t.Fatalf("expected 25 coords, got %d", len(coords))
	}
	for i := 1; i < len(coords); i++ {
		if !coords[i-1].Less(coords[i]) {
			t.Errorf("coords not strictly ordered at %d: %v >= %v", i, coords[i-1], coords[i])
		}
	}
}

// TestTileYields checks the derived-yield formula, including the rule that
// a resource only pays out once improved.
func TestTileYields(t *testing.T) {
	tile := &Tile{Terrain: TerrainGrassland, Resource: ResourceCattle}
	base := tile.Yields()
	if base != NewYields(2, 0, 0, 0, 0) {
		t.Errorf("unimproved resource leaked into yields: %+v", base)
	}

	tile.Improvement = ImprovementPasture
	improved := tile.Yields()
	want := NewYields(3, 2, 0, 0, 0) // grassland + pasture + cattle
	if improved != want {
		t.Errorf("improved yields = %+v, want %+v", improved, want)
	}
}

func TestTileYieldsNeverNegative(t *testing.T) {
	tile := &Tile{Terrain: TerrainDesert, Feature: FeatureMarsh}
	y := tile.Yields()
	if y.Food < 0 || y.Production < 0 || y.Gold < 0 || y.Science < 0 || y.Culture < 0 {
		t.Errorf("negative derived yields: %+v", y)
	}
}

func TestRoadOverridesMovementCost(t *testing.T) {
	tile := &Tile{Terrain: TerrainHills, Feature: FeatureForest}
	if tile.MovementCost() != 30 {
		t.Fatalf("hills+forest cost = %d, want 30", tile.MovementCost())
	}
	tile.Road = RoadBasic
	if tile.MovementCost() != 5 {
		t.Errorf("road cost = %d, want 5", tile.MovementCost())
	}
}
