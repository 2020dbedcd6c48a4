package world

// Terrain classifies the base surface of a tile. The enum is closed:
// every formula below is a pure lookup keyed on the tag, with no hidden
// state. Adding a terrain means extending every table here.
type Terrain uint8

const (
	TerrainGrassland Terrain = iota
	TerrainPlains
	TerrainDesert
	TerrainTundra
	TerrainSnow
	TerrainCoast
	TerrainOcean
	TerrainMountain
	TerrainHills
)

// terrainStats holds the per-terrain base values.
type terrainStats struct {
	Yields       Yields
	MovementCost int // fixed point, x10
	DefenseBonus int // additive percent
	Water        bool
	Impassable   bool
}

var terrainTable = map[Terrain]terrainStats{
	TerrainGrassland: {Yields: NewYields(2, 0, 0, 0, 0), MovementCost: 10},
	TerrainPlains:    {Yields: NewYields(1, 1, 0, 0, 0), MovementCost: 10},
	TerrainDesert:    {Yields: NewYields(0, 0, 0, 0, 0), MovementCost: 10},
	TerrainTundra:    {Yields: NewYields(1, 0, 0, 0, 0), MovementCost: 10},
	TerrainSnow:      {Yields: NewYields(0, 0, 0, 0, 0), MovementCost: 10},
	TerrainCoast:     {Yields: NewYields(1, 0, 1, 0, 0), MovementCost: 10, Water: true},
	TerrainOcean:     {Yields: NewYields(1, 0, 0, 0, 0), MovementCost: 10, Water: true},
	TerrainMountain:  {Yields: NewYields(0, 0, 0, 0, 0), MovementCost: 10, DefenseBonus: 50, Impassable: true},
	TerrainHills:     {Yields: NewYields(0, 2, 0, 0, 0), MovementCost: 20, DefenseBonus: 25},
}

// BaseYields returns the terrain's unmodified yields.
func (t Terrain) BaseYields() Yields { return terrainTable[t].Yields }

// MovementCost returns the fixed-point (x10) cost to enter this terrain.
func (t Terrain) MovementCost() int { return terrainTable[t].MovementCost }

// DefenseBonus returns the additive percent defense modifier.
func (t Terrain) DefenseBonus() int { return terrainTable[t].DefenseBonus }

// IsWater reports whether the terrain is coast or ocean.
func (t Terrain) IsWater() bool { return terrainTable[t].Water }

// IsImpassable reports whether land units can never enter.
func (t Terrain) IsImpassable() bool { return terrainTable[t].Impassable }

func (t Terrain) String() string {
	switch t {
	case TerrainGrassland:
		return "grassland"
	case TerrainPlains:
		return "plains"
	case TerrainDesert:
		return "desert"
	case TerrainTundra:
		return "tundra"
	case TerrainSnow:
		return "snow"
	case TerrainCoast:
		return "coast"
	case TerrainOcean:
		return "ocean"
	case TerrainMountain:
		return "mountain"
	case TerrainHills:
		return "hills"
	}
	return "unknown"
}

// Feature is an optional overlay on a tile (forest, jungle, ...).
type Feature uint8

const (
	FeatureNone Feature = iota
	FeatureForest
	FeatureJungle
	FeatureMarsh
	FeatureOasis
	FeatureFloodPlains
)

type featureStats struct {
	YieldDelta    Yields
	MovementExtra int // fixed point, x10, added to terrain cost
	DefenseBonus  int
}

var featureTable = map[Feature]featureStats{
	FeatureNone:        {},
	FeatureForest:      {YieldDelta: NewYields(0, 1, 0, 0, 0), MovementExtra: 10, DefenseBonus: 25},
	FeatureJungle:      {YieldDelta: NewYields(1, -1, 0, 0, 0), MovementExtra: 10, DefenseBonus: 25},
	FeatureMarsh:       {YieldDelta: NewYields(-1, 0, 0, 0, 0), MovementExtra: 10},
	FeatureOasis:       {YieldDelta: NewYields(3, 0, 1, 0, 0)},
	FeatureFloodPlains: {YieldDelta: NewYields(2, 0, 0, 0, 0)},
}

// YieldDelta returns the feature's additive yield modifier.
func (f Feature) YieldDelta() Yields { return featureTable[f].YieldDelta }

// MovementExtra returns the extra fixed-point movement cost.
func (f Feature) MovementExtra() int { return featureTable[f].MovementExtra }

// DefenseBonus returns the additive percent defense modifier.
func (f Feature) DefenseBonus() int { return featureTable[f].DefenseBonus }

func (f Feature) String() string {
	switch f {
	case FeatureForest:
		return "forest"
	case FeatureJungle:
		return "jungle"
	case FeatureMarsh:
		return "marsh"
	case FeatureOasis:
		return "oasis"
	case FeatureFloodPlains:
		return "flood_plains"
	}
	return "none"
}

// Resource is an optional strategic/luxury/bonus deposit on a tile.
// Its yield bonus applies only once the matching improvement is built.
type Resource uint8

const (
	ResourceNone Resource = iota
	ResourceWheat
	ResourceCattle
	ResourceFish
	ResourceHorses
	ResourceIron
	ResourceGold
	ResourceGems
	ResourceFurs
	ResourceStone
)

var resourceBonus = map[Resource]Yields{
	ResourceNone:   {},
	ResourceWheat:  NewYields(1, 0, 0, 0, 0),
	ResourceCattle: NewYields(1, 0, 0, 0, 0),
	ResourceFish:   NewYields(2, 0, 0, 0, 0),
	ResourceHorses: NewYields(0, 1, 0, 0, 0),
	ResourceIron:   NewYields(0, 1, 0, 0, 0),
	ResourceGold:   NewYields(0, 0, 2, 0, 0),
	ResourceGems:   NewYields(0, 0, 3, 0, 0),
	ResourceFurs:   NewYields(0, 0, 2, 0, 0),
	ResourceStone:  NewYields(0, 1, 0, 0, 0),
}

// Bonus returns the yield bonus granted once the resource is improved.
func (r Resource) Bonus() Yields { return resourceBonus[r] }

func (r Resource) String() string {
	switch r {
	case ResourceWheat:
		return "wheat"
	case ResourceCattle:
		return "cattle"
	case ResourceFish:
		return "fish"
	case ResourceHorses:
		return "horses"
	case ResourceIron:
		return "iron"
	case ResourceGold:
		return "gold"
	case ResourceGems:
		return "gems"
	case ResourceFurs:
		return "furs"
	case ResourceStone:
		return "stone"
	}
	return "none"
}

// Improvement is a worker-built tile upgrade.
type Improvement uint8

const (
	ImprovementNone Improvement = iota
	ImprovementFarm
	ImprovementMine
	ImprovementPasture
	ImprovementPlantation
	ImprovementFishingBoats
	ImprovementQuarry
	ImprovementTradingPost
)

var improvementBonus = map[Improvement]Yields{
	ImprovementNone:         {},
	ImprovementFarm:         NewYields(1, 0, 0, 0, 0),
	ImprovementMine:         NewYields(0, 1, 0, 0, 0),
	ImprovementPasture:      NewYields(0, 1, 0, 0, 0),
	ImprovementPlantation:   NewYields(0, 0, 1, 0, 0),
	ImprovementFishingBoats: NewYields(1, 0, 0, 0, 0),
	ImprovementQuarry:       NewYields(0, 1, 0, 0, 0),
	ImprovementTradingPost:  NewYields(0, 0, 1, 0, 0),
}

// Bonus returns the improvement's additive yield bonus.
func (i Improvement) Bonus() Yields { return improvementBonus[i] }

func (i Improvement) String() string {
	switch i {
	case ImprovementFarm:
		return "farm"
	case ImprovementMine:
		return "mine"
	case ImprovementPasture:
		return "pasture"
	case ImprovementPlantation:
		return "plantation"
	case ImprovementFishingBoats:
		return "fishing_boats"
	case ImprovementQuarry:
		return "quarry"
	case ImprovementTradingPost:
		return "trading_post"
	}
	return "none"
}

// Road is the tile's road tier. Roads reduce movement cost to a flat rate.
type Road uint8

const (
	RoadNone Road = iota
	RoadBasic
	RoadRailroad
)

func (r Road) String() string {
	switch r {
	case RoadBasic:
		return "road"
	case RoadRailroad:
		return "railroad"
	}
	return "none"
}

// MovementCost returns the flat fixed-point movement cost along the road,
// or 0 when there is no road.
func (r Road) MovementCost() int {
	switch r {
	case RoadBasic:
		return 5
	case RoadRailroad:
		return 3
	}
	return 0
}
