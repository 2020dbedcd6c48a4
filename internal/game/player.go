package game

import "hexempire/internal/world"

// TechType is the closed research tree.
type TechType uint8

const (
	TechAgriculture TechType = iota
	TechPottery
	TechMining
	TechArchery
	TechBronzeWorking
	TechWriting
	TechSailing
	TechIronWorking
	TechMathematics
	TechCurrency
)

var techCosts = map[TechType]int{
	TechAgriculture:   20,
	TechPottery:       35,
	TechMining:        35,
	TechArchery:       35,
	TechBronzeWorking: 55,
	TechWriting:       55,
	TechSailing:       55,
	TechIronWorking:   85,
	TechMathematics:   85,
	TechCurrency:      85,
}

// Cost returns the science cost of the tech.
func (t TechType) Cost() int { return techCosts[t] }

var techNames = map[TechType]string{
	TechAgriculture:   "agriculture",
	TechPottery:       "pottery",
	TechMining:        "mining",
	TechArchery:       "archery",
	TechBronzeWorking: "bronze_working",
	TechWriting:       "writing",
	TechSailing:       "sailing",
	TechIronWorking:   "iron_working",
	TechMathematics:   "mathematics",
	TechCurrency:      "currency",
}

func (t TechType) String() string { return techNames[t] }

// Score component weights. Total is always the weighted sum of the
// components; it is recomputed on every change and never drifts.
const (
	scorePerCity       = 10
	scorePerPopulation = 3
	scorePerTech       = 5
	scorePerLandTile   = 1
	scorePerSpacePart  = 25
)

// ScoreBreakdown holds the per-component scores plus their weighted total.
type ScoreBreakdown struct {
	Cities     int `json:"cities"`
	Population int `json:"population"`
	Techs      int `json:"techs"`
	Land       int `json:"land"`
	Spaceship  int `json:"spaceship"`
	Total      int `json:"total"`
}

func (s *ScoreBreakdown) recompute() {
	s.Total = s.Cities*scorePerCity +
		s.Population*scorePerPopulation +
		s.Techs*scorePerTech +
		s.Land*scorePerLandTile +
		s.Spaceship*scorePerSpacePart
}

// Player is one participant. Identified by id; the pubkey signs events.
type Player struct {
	ID           string `json:"id"`
	PubKey       string `json:"pubkey"`
	Name         string `json:"name"`
	Civilization string `json:"civilization"`
	Color        string `json:"color"`

	Treasury      int          `json:"treasury"`
	PerTurnYields world.Yields `json:"perTurnYields"`

	CurrentResearch  *TechType         `json:"currentResearch,omitempty"`
	ResearchProgress int               `json:"researchProgress"`
	Researched       map[TechType]bool `json:"researched"`

	CapitalCityID string `json:"capitalCityId,omitempty"`
	Eliminated    bool   `json:"eliminated,omitempty"`

	Explored map[world.HexCoord]bool `json:"explored"`

	Score             ScoreBreakdown `json:"score"`
	SpaceshipProgress int            `json:"spaceshipProgress"`
}

// NewPlayer creates a player with empty holdings.
func NewPlayer(id, pubkey, name, civilization, color string) *Player {
	return &Player{
		ID:           id,
		PubKey:       pubkey,
		Name:         name,
		Civilization: civilization,
		Color:        color,
		Researched:   make(map[TechType]bool),
		Explored:     make(map[world.HexCoord]bool),
	}
}

// SetResearch switches the current research target. Progress banked
// toward a different tech is dropped. Returns false for an already
// researched tech.
func (p *Player) SetResearch(t TechType) bool {
	if p.Researched[t] {
		return false
	}
	if p.CurrentResearch == nil || *p.CurrentResearch != t {
		p.ResearchProgress = 0
	}
	p.CurrentResearch = &t
	return true
}

// AddScience advances the current research, completing it when the cost
// is met. Returns the completed tech, if any.
func (p *Player) AddScience(amount int) *TechType {
	if p.CurrentResearch == nil {
		return nil
	}
	p.ResearchProgress += amount
	t := *p.CurrentResearch
	if p.ResearchProgress < t.Cost() {
		return nil
	}
	p.Researched[t] = true
	p.CurrentResearch = nil
	p.ResearchProgress = 0
	p.UpdateScore(func(s *ScoreBreakdown) { s.Techs = len(p.Researched) })
	return &t
}

// Explore marks a tile as seen by this player.
func (p *Player) Explore(c world.HexCoord) {
	p.Explored[c] = true
}

// UpdateScore mutates one or more score components and recomputes the
// weighted total in the same step, so Total can never drift.
func (p *Player) UpdateScore(mutate func(*ScoreBreakdown)) {
	mutate(&p.Score)
	p.Score.recompute()
}
