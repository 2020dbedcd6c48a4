// Package game holds the deterministic game-state model: units, cities,
// players, the aggregate state, combat resolution, and pathfinding.
// Everything here is synchronous, single-owner, and free of ambient
// randomness; stochastic inputs are always supplied by the caller.
package game

import "hexempire/internal/world"

// UnitCategory drives passability and combat matchups.
type UnitCategory uint8

const (
	CategoryCivilian UnitCategory = iota
	CategoryLand
	CategoryNaval
	CategoryAir
)

// UnitType is the closed roster of unit kinds. Stats are pure table
// lookups on the tag; new units extend the tag set and the table.
type UnitType uint8

const (
	UnitSettler UnitType = iota
	UnitWorker
	UnitScout
	UnitWarrior
	UnitSpearman
	UnitArcher
	UnitSwordsman
	UnitHorseman
	UnitCatapult
	UnitTrireme
	UnitGalleon
	UnitFighter
)

type unitStats struct {
	Name           string
	Category       UnitCategory
	CombatStrength int
	RangedStrength int
	Range          int
	Movement       int // fixed point, x10
	Cost           int // production
}

var unitTable = map[UnitType]unitStats{
	UnitSettler:   {Name: "settler", Category: CategoryCivilian, Movement: 20, Cost: 80},
	UnitWorker:    {Name: "worker", Category: CategoryCivilian, Movement: 20, Cost: 60},
	UnitScout:     {Name: "scout", Category: CategoryLand, CombatStrength: 4, Movement: 30, Cost: 25},
	UnitWarrior:   {Name: "warrior", Category: CategoryLand, CombatStrength: 8, Movement: 20, Cost: 40},
	UnitSpearman:  {Name: "spearman", Category: CategoryLand, CombatStrength: 11, Movement: 20, Cost: 56},
	UnitArcher:    {Name: "archer", Category: CategoryLand, CombatStrength: 5, RangedStrength: 7, Range: 2, Movement: 20, Cost: 40},
	UnitSwordsman: {Name: "swordsman", Category: CategoryLand, CombatStrength: 14, Movement: 20, Cost: 75},
	UnitHorseman:  {Name: "horseman", Category: CategoryLand, CombatStrength: 12, Movement: 40, Cost: 75},
	UnitCatapult:  {Name: "catapult", Category: CategoryLand, CombatStrength: 4, RangedStrength: 14, Range: 2, Movement: 20, Cost: 75},
	UnitTrireme:   {Name: "trireme", Category: CategoryNaval, CombatStrength: 10, Movement: 40, Cost: 45},
	UnitGalleon:   {Name: "galleon", Category: CategoryNaval, CombatStrength: 16, RangedStrength: 12, Range: 2, Movement: 50, Cost: 100},
	UnitFighter:   {Name: "fighter", Category: CategoryAir, CombatStrength: 30, RangedStrength: 35, Range: 5, Movement: 80, Cost: 200},
}

// Stats returns the const stat row for the type.
func (u UnitType) Stats() unitStats { return unitTable[u] }

func (u UnitType) String() string { return unitTable[u].Name }

// Promotion is a permanent combat modifier earned with experience.
type Promotion uint8

const (
	PromotionShock    Promotion = iota // melee bonus in open terrain
	PromotionDrill                     // melee bonus in rough terrain
	PromotionAccuracy                  // ranged bonus against open-terrain targets
	PromotionBarrage                   // ranged bonus against rough terrain and cities
	PromotionCover                     // defense bonus against ranged attacks
)

// PromotionBonusPercent is the additive percent each promotion grants when
// its matchup applies.
const PromotionBonusPercent = 15

// Fortification grants additive percent per fortified turn, capped.
const (
	FortifyBonusPerTurn = 25
	FortifyMaxTurns     = 2
)

// Unit is a single mobile piece. Created by production or a lifecycle
// action; removed from the unit collection when health reaches zero.
type Unit struct {
	ID       string         `json:"id"`
	OwnerID  string         `json:"ownerId"`
	Type     UnitType       `json:"type"`
	Position world.HexCoord `json:"position"`

	Health     int `json:"health"`   // 0..100
	Movement   int `json:"movement"` // remaining this turn, fixed point x10
	Experience int `json:"experience"`

	Promotions   []Promotion `json:"promotions,omitempty"`
	FortifyTurns int         `json:"fortifyTurns,omitempty"`
	Embarked     bool        `json:"embarked,omitempty"`
	HasActed     bool        `json:"hasActed,omitempty"`
	Sleeping     bool        `json:"sleeping,omitempty"`
}

// NewUnit creates a full-health unit at the given position.
func NewUnit(id, ownerID string, t UnitType, pos world.HexCoord) *Unit {
	return &Unit{
		ID:       id,
		OwnerID:  ownerID,
		Type:     t,
		Position: pos,
		Health:   100,
		Movement: t.Stats().Movement,
	}
}

// scaledStrength applies the health scaling rule: linear in health/100,
// floored at 1 whenever the base is positive.
func scaledStrength(base, health int) int {
	if base <= 0 {
		return 0
	}
	s := base * health / 100
	if s < 1 {
		s = 1
	}
	return s
}

// EffectiveStrength is the melee strength at current health.
func (u *Unit) EffectiveStrength() int {
	return scaledStrength(u.Type.Stats().CombatStrength, u.Health)
}

// EffectiveRangedStrength is the ranged strength at current health.
func (u *Unit) EffectiveRangedStrength() int {
	return scaledStrength(u.Type.Stats().RangedStrength, u.Health)
}

// HasPromotion reports whether the unit holds p.
func (u *Unit) HasPromotion(p Promotion) bool {
	for _, have := range u.Promotions {
		if have == p {
			return true
		}
	}
	return false
}

// FortifyBonus is the additive percent from fortification, 0/25/50.
func (u *Unit) FortifyBonus() int {
	turns := u.FortifyTurns
	if turns > FortifyMaxTurns {
		turns = FortifyMaxTurns
	}
	return turns * FortifyBonusPerTurn
}

// ResetForTurn restores movement and advances fortification at the start
// of the owner's turn.
func (u *Unit) ResetForTurn() {
	u.Movement = u.Type.Stats().Movement
	u.HasActed = false
	if u.FortifyTurns > 0 {
		u.FortifyTurns++
	}
}

// Heal restores health up to the cap.
func (u *Unit) Heal(amount int) {
	u.Health += amount
	if u.Health > 100 {
		u.Health = 100
	}
}
