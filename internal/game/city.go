package game

import "hexempire/internal/world"

// BuildingType is the closed roster of city buildings.
type BuildingType uint8

const (
	BuildingMonument BuildingType = iota
	BuildingGranary
	BuildingBarracks
	BuildingLibrary
	BuildingMarket
	BuildingWalls
)

type buildingStats struct {
	Name     string
	Cost     int
	Yields   world.Yields
	SellGold int
}

var buildingTable = map[BuildingType]buildingStats{
	BuildingMonument: {Name: "monument", Cost: 40, Yields: world.NewYields(0, 0, 0, 0, 2), SellGold: 10},
	BuildingGranary:  {Name: "granary", Cost: 60, Yields: world.NewYields(2, 0, 0, 0, 0), SellGold: 15},
	BuildingBarracks: {Name: "barracks", Cost: 75, SellGold: 18},
	BuildingLibrary:  {Name: "library", Cost: 75, Yields: world.NewYields(0, 0, 0, 3, 0), SellGold: 18},
	BuildingMarket:   {Name: "market", Cost: 100, Yields: world.NewYields(0, 0, 3, 0, 0), SellGold: 25},
	BuildingWalls:    {Name: "walls", Cost: 80, SellGold: 20},
}

// Stats returns the const stat row for the building.
func (b BuildingType) Stats() buildingStats { return buildingTable[b] }

func (b BuildingType) String() string { return buildingTable[b].Name }

// ProductionKind tags what a production item builds.
type ProductionKind uint8

const (
	ProduceUnit ProductionKind = iota
	ProduceBuilding
)

// ProductionItem is one entry of a city's build queue.
type ProductionItem struct {
	Kind     ProductionKind `json:"kind"`
	Unit     UnitType       `json:"unit,omitempty"`
	Building BuildingType   `json:"building,omitempty"`
}

// UnitProduction builds a production item for a unit.
func UnitProduction(t UnitType) ProductionItem {
	return ProductionItem{Kind: ProduceUnit, Unit: t}
}

// BuildingProduction builds a production item for a building.
func BuildingProduction(b BuildingType) ProductionItem {
	return ProductionItem{Kind: ProduceBuilding, Building: b}
}

// Cost returns the production cost of the item.
func (p ProductionItem) Cost() int {
	if p.Kind == ProduceUnit {
		return p.Unit.Stats().Cost
	}
	return p.Building.Stats().Cost
}

const (
	cityBaseHealth         = 100
	cityBaseCombatStrength = 8
	wallsCombatBonus       = 5
	foodPerCitizen         = 2
	borderExpandCulture    = 20
)

// City is a settlement. Created by FoundCity; ownership transfers on
// capture; cities are never deleted.
type City struct {
	ID       string         `json:"id"`
	OwnerID  string         `json:"ownerId"`
	Name     string         `json:"name"`
	Position world.HexCoord `json:"position"`

	Population int  `json:"population"`
	StoredFood int  `json:"storedFood"`
	Capital    bool `json:"capital,omitempty"`

	Health    int `json:"health"`
	MaxHealth int `json:"maxHealth"`

	Buildings map[BuildingType]bool `json:"buildings"`

	Production         *ProductionItem  `json:"production,omitempty"`
	ProductionProgress int              `json:"productionProgress"`
	ProductionQueue    []ProductionItem `json:"productionQueue,omitempty"`

	// WorkedTiles always contains the city center; the center can never
	// be unassigned.
	WorkedTiles map[world.HexCoord]bool `json:"workedTiles"`
	Specialists int                     `json:"specialists"`

	// Territory only grows; the core model never shrinks borders.
	Territory map[world.HexCoord]bool `json:"territory"`

	Culture int    `json:"culture"`
	Age     uint32 `json:"age"`
}

// NewCity founds a city working its own center tile and owning the
// center plus its immediate neighbors.
func NewCity(id, ownerID, name string, pos world.HexCoord, capital bool) *City {
	c := &City{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Position:    pos,
		Population:  1,
		Capital:     capital,
		Health:      cityBaseHealth,
		MaxHealth:   cityBaseHealth,
		Buildings:   make(map[BuildingType]bool),
		WorkedTiles: map[world.HexCoord]bool{pos: true},
		Territory:   map[world.HexCoord]bool{pos: true},
	}
	for _, n := range pos.Neighbors() {
		c.Territory[n] = true
	}
	return c
}

// CombatStrength is the city's defensive strength including walls.
func (c *City) CombatStrength() int {
	s := cityBaseCombatStrength + c.Population
	if c.Buildings[BuildingWalls] {
		s += wallsCombatBonus
	}
	return s
}

// AvailableCitizens is population minus assigned workers (the center is
// free) minus specialists, saturating at zero.
func (c *City) AvailableCitizens() int {
	free := c.Population - (len(c.WorkedTiles) - 1) - c.Specialists
	if free < 0 {
		return 0
	}
	return free
}

// AssignCitizen puts an idle citizen to work on a territory tile.
func (c *City) AssignCitizen(coord world.HexCoord) bool {
	if c.AvailableCitizens() == 0 || !c.Territory[coord] || c.WorkedTiles[coord] {
		return false
	}
	c.WorkedTiles[coord] = true
	return true
}

// UnassignCitizen frees a worked tile. The city center cannot be
// unassigned.
func (c *City) UnassignCitizen(coord world.HexCoord) bool {
	if coord == c.Position || !c.WorkedTiles[coord] {
		return false
	}
	delete(c.WorkedTiles, coord)
	return true
}

// SetProduction replaces the current production target. Progress banked
// toward a different item is dropped.
func (c *City) SetProduction(item ProductionItem) {
	if c.Production != nil && *c.Production != item {
		c.ProductionProgress = 0
	}
	c.Production = &item
}

// QueueProduction appends to the build queue, or sets the current item if
// nothing is in progress.
func (c *City) QueueProduction(item ProductionItem) {
	if c.Production == nil {
		c.Production = &item
		return
	}
	c.ProductionQueue = append(c.ProductionQueue, item)
}

// cityCenterBaseYields is what the settlement itself produces on top of
// its worked tiles, so a city on barren terrain still functions.
var cityCenterBaseYields = world.NewYields(2, 2, 1, 1, 0)

// TileYields sums the city's own base output with the yields of all
// worked tiles on the map, plus building yields.
func (c *City) TileYields(m *world.Map) world.Yields {
	total := cityCenterBaseYields
	for coord := range c.WorkedTiles {
		if tile := m.TileAt(coord); tile != nil {
			total = total.Add(tile.Yields())
		}
	}
	for b, built := range c.Buildings {
		if built {
			total = total.Add(b.Stats().Yields)
		}
	}
	return total
}

// CityTurnResult describes what one ProcessTurn did.
type CityTurnResult struct {
	CompletedProduction *ProductionItem
	Grew                bool
	Starved             bool
	BordersExpanded     bool
	Yields              world.Yields
}

// growthThreshold is the stored food needed to grow from the current
// population.
func (c *City) growthThreshold() int {
	return 15 + 6*(c.Population-1)
}

// ProcessTurn applies one turn of the given yields: food growth or
// starvation, production progress and completion, culture accrual, and
// healing. Deterministic: same city state and yields, same result.
func (c *City) ProcessTurn(y world.Yields) CityTurnResult {
	res := CityTurnResult{Yields: y}

	// Food.
	c.StoredFood += y.Food - c.Population*foodPerCitizen
	if c.StoredFood < 0 {
		c.StoredFood = 0
		if c.Population > 1 {
			c.Population--
			res.Starved = true
		}
	} else if c.StoredFood >= c.growthThreshold() {
		c.StoredFood -= c.growthThreshold()
		c.Population++
		res.Grew = true
	}

	// Production.
	if c.Production != nil {
		c.ProductionProgress += y.Production
		if c.ProductionProgress >= c.Production.Cost() {
			done := *c.Production
			res.CompletedProduction = &done
			c.ProductionProgress -= done.Cost()
			if len(c.ProductionQueue) > 0 {
				next := c.ProductionQueue[0]
				c.ProductionQueue = c.ProductionQueue[1:]
				c.Production = &next
			} else {
				c.Production = nil
				c.ProductionProgress = 0
			}
			if done.Kind == ProduceBuilding {
				c.Buildings[done.Building] = true
			}
		}
	}

	// Culture and healing.
	c.Culture += y.Culture
	if c.Culture >= borderExpandCulture*(len(c.Territory)/6+1) {
		res.BordersExpanded = true
	}
	if c.Health < c.MaxHealth {
		c.Health += 5
		if c.Health > c.MaxHealth {
			c.Health = c.MaxHealth
		}
	}

	c.Age++
	return res
}

// ExpandBorders adds the given tiles to the city's territory. Territory
// never shrinks.
func (c *City) ExpandBorders(tiles []world.HexCoord) {
	for _, t := range tiles {
		c.Territory[t] = true
	}
}

// SellBuilding removes a building and returns the gold refunded, or -1 if
// the building is not present.
func (c *City) SellBuilding(b BuildingType) int {
	if !c.Buildings[b] {
		return -1
	}
	delete(c.Buildings, b)
	return b.Stats().SellGold
}
