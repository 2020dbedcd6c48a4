package world

// RiverEdge indexes the six edges of a tile for river flags, in the same
// order as HexCoord.Neighbors.
type RiverEdge int

// Tile is a single cell of the map. Tiles are created during generation,
// mutated by worker actions and border growth, and never deleted.
type Tile struct {
	Coord       HexCoord    `json:"coord"`
	Terrain     Terrain     `json:"terrain"`
	Feature     Feature     `json:"feature,omitempty"`
	Resource    Resource    `json:"resource,omitempty"`
	Improvement Improvement `json:"improvement,omitempty"`
	Road        Road        `json:"road,omitempty"`

	// Ownership, empty when unclaimed.
	OwnerID string `json:"ownerId,omitempty"`
	CityID  string `json:"cityId,omitempty"`

	// RiverEdges marks which of the six edges carry a river.
	RiverEdges [6]bool `json:"riverEdges"`
}

// Yields derives the tile's output: terrain base + feature delta +
// improvement bonus + resource bonus (only once improved), clamped so no
// component goes negative.
func (t *Tile) Yields() Yields {
	y := t.Terrain.BaseYields()
	y = y.Add(t.Feature.YieldDelta())
	y = y.Add(t.Improvement.Bonus())
	if t.Resource != ResourceNone && t.Improvement != ImprovementNone {
		y = y.Add(t.Resource.Bonus())
	}
	return y.ClampNonNegative()
}

// MovementCost is the fixed-point (x10) cost to enter this tile.
// A road overrides the terrain and feature costs entirely.
func (t *Tile) MovementCost() int {
	if c := t.Road.MovementCost(); c > 0 {
		return c
	}
	return t.Terrain.MovementCost() + t.Feature.MovementExtra()
}

// DefenseBonus is the additive percent modifier a defender on this tile gets.
func (t *Tile) DefenseBonus() int {
	return t.Terrain.DefenseBonus() + t.Feature.DefenseBonus()
}

// HasRiver reports whether any edge of the tile carries a river.
func (t *Tile) HasRiver() bool {
	for _, e := range t.RiverEdges {
		if e {
			return true
		}
	}
	return false
}

// HasFreshWater reports river adjacency or an oasis, used by start-position
// scoring and farm placement rules.
func (t *Tile) HasFreshWater() bool {
	return t.HasRiver() || t.Feature == FeatureOasis
}
