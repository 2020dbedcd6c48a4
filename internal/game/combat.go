package game

import (
	"fmt"
	"math"

	"hexempire/internal/world"
)

// Combat tuning. Damage is capped per exchange; the random scalar widens
// the damage band to [0.8, 1.2) of the deterministic midpoint.
const (
	unitCombatBase = 30.0
	cityCombatBase = 20.0
	maxDamage      = 100

	xpBase             = 2
	xpStrongerOppBonus = 1
	xpKillBonus        = 3
)

// CombatResult is the full outcome of one exchange. Identical inputs
// always produce an identical result, including the breakdown log.
type CombatResult struct {
	AttackerDamage    int  `json:"attackerDamage"` // damage taken by the attacker
	DefenderDamage    int  `json:"defenderDamage"` // damage taken by the defender
	AttackerDestroyed bool `json:"attackerDestroyed"`
	DefenderDestroyed bool `json:"defenderDestroyed"`
	AttackerXP        int  `json:"attackerXp"`
	DefenderXP        int  `json:"defenderXp"`
	CityCaptured      bool `json:"cityCaptured,omitempty"`

	// Breakdown is the ordered audit log of every modifier applied.
	Breakdown []string `json:"breakdown"`
}

// roughTile reports whether the defender's tile counts as rough for the
// drill/barrage matchups.
func roughTile(t *world.Tile) bool {
	if t == nil {
		return false
	}
	return t.Terrain == world.TerrainHills ||
		t.Feature == world.FeatureForest ||
		t.Feature == world.FeatureJungle
}

// attackStrength applies the attacker's promotion matchups on top of its
// health-scaled base.
func attackStrength(attacker *Unit, defenderTile *world.Tile, ranged bool, log *[]string) float64 {
	var base int
	if ranged {
		base = attacker.EffectiveRangedStrength()
	} else {
		base = attacker.EffectiveStrength()
	}
	*log = append(*log, fmt.Sprintf("attacker base strength %d", base))

	bonus := 0
	rough := roughTile(defenderTile)
	if !ranged && attacker.HasPromotion(PromotionShock) && !rough {
		bonus += PromotionBonusPercent
		*log = append(*log, fmt.Sprintf("shock +%d%%", PromotionBonusPercent))
	}
	if !ranged && attacker.HasPromotion(PromotionDrill) && rough {
		bonus += PromotionBonusPercent
		*log = append(*log, fmt.Sprintf("drill +%d%%", PromotionBonusPercent))
	}
	if ranged && attacker.HasPromotion(PromotionAccuracy) && !rough {
		bonus += PromotionBonusPercent
		*log = append(*log, fmt.Sprintf("accuracy +%d%%", PromotionBonusPercent))
	}
	if ranged && attacker.HasPromotion(PromotionBarrage) && rough {
		bonus += PromotionBonusPercent
		*log = append(*log, fmt.Sprintf("barrage +%d%%", PromotionBonusPercent))
	}

	return float64(base) * (1 + float64(bonus)/100)
}

// defenseStrength applies terrain, fortification, and cover on top of the
// defender's health-scaled base.
func defenseStrength(defender *Unit, tile *world.Tile, ranged bool, log *[]string) float64 {
	base := defender.EffectiveStrength()
	*log = append(*log, fmt.Sprintf("defender base strength %d", base))

	bonus := 0
	if tile != nil && tile.DefenseBonus() > 0 {
		bonus += tile.DefenseBonus()
		*log = append(*log, fmt.Sprintf("terrain +%d%%", tile.DefenseBonus()))
	}
	if fb := defender.FortifyBonus(); fb > 0 {
		bonus += fb
		*log = append(*log, fmt.Sprintf("fortified +%d%%", fb))
	}
	if ranged && defender.HasPromotion(PromotionCover) {
		bonus += PromotionBonusPercent
		*log = append(*log, fmt.Sprintf("cover +%d%%", PromotionBonusPercent))
	}

	return float64(base) * (1 + float64(bonus)/100)
}

// damageRoll computes base * sqrt(ratio) * (0.8 + random*0.4), capped.
func damageRoll(base, ratio, random float64) int {
	d := int(base * math.Sqrt(ratio) * (0.8 + random*0.4))
	if d > maxDamage {
		d = maxDamage
	}
	if d < 0 {
		d = 0
	}
	return d
}

// ResolveCombat is the pure unit-vs-unit resolver. The random scalar in
// [0, 1) is always supplied externally (from a randomness proof); the
// resolver draws no entropy of its own.
func ResolveCombat(attacker, defender *Unit, attackerTile, defenderTile *world.Tile, random float64, ranged bool) CombatResult {
	var res CombatResult

	att := attackStrength(attacker, defenderTile, ranged, &res.Breakdown)
	def := defenseStrength(defender, defenderTile, ranged, &res.Breakdown)
	if att < 1 {
		att = 1
	}
	if def < 1 {
		def = 1
	}

	res.DefenderDamage = damageRoll(unitCombatBase, att/def, random)
	res.Breakdown = append(res.Breakdown, fmt.Sprintf("defender takes %d damage", res.DefenderDamage))

	// Counter-damage mirrors the roll with the inverse ratio and (1-r);
	// ranged attacks draw no counter.
	if !ranged {
		res.AttackerDamage = damageRoll(unitCombatBase, def/att, 1-random)
		res.Breakdown = append(res.Breakdown, fmt.Sprintf("attacker takes %d damage", res.AttackerDamage))
	}

	res.DefenderDestroyed = defender.Health <= res.DefenderDamage
	res.AttackerDestroyed = attacker.Health <= res.AttackerDamage

	res.AttackerXP = xpBase + res.DefenderDamage/10
	if def > att {
		res.AttackerXP += xpStrongerOppBonus
	}
	if res.DefenderDestroyed {
		res.AttackerXP += xpKillBonus
	}

	// The defender earns XP only by surviving and dealing damage.
	if !res.DefenderDestroyed && res.AttackerDamage > 0 {
		res.DefenderXP = xpBase + res.AttackerDamage/10
		if att > def {
			res.DefenderXP += xpStrongerOppBonus
		}
		if res.AttackerDestroyed {
			res.DefenderXP += xpKillBonus
		}
	}

	return res
}

// ResolveCityCombat resolves a unit attacking a city. It shares the unit
// formula shape with a lower base; Barrage applies against cities. A city
// is captured only when the attack is melee and its health is exhausted.
func ResolveCityCombat(attacker *Unit, city *City, defenderTile *world.Tile, random float64, ranged bool) CombatResult {
	var res CombatResult

	var base int
	if ranged {
		base = attacker.EffectiveRangedStrength()
	} else {
		base = attacker.EffectiveStrength()
	}
	res.Breakdown = append(res.Breakdown, fmt.Sprintf("attacker base strength %d", base))

	att := float64(base)
	if attacker.HasPromotion(PromotionBarrage) {
		att *= 1 + float64(PromotionBonusPercent)/100
		res.Breakdown = append(res.Breakdown, fmt.Sprintf("barrage +%d%%", PromotionBonusPercent))
	}

	def := float64(city.CombatStrength())
	if defenderTile != nil && defenderTile.DefenseBonus() > 0 {
		def *= 1 + float64(defenderTile.DefenseBonus())/100
	}
	res.Breakdown = append(res.Breakdown, fmt.Sprintf("city strength %.0f", def))
	if att < 1 {
		att = 1
	}
	if def < 1 {
		def = 1
	}

	res.DefenderDamage = damageRoll(cityCombatBase, att/def, random)
	res.Breakdown = append(res.Breakdown, fmt.Sprintf("city takes %d damage", res.DefenderDamage))

	if !ranged {
		res.AttackerDamage = damageRoll(cityCombatBase, def/att, 1-random)
		res.Breakdown = append(res.Breakdown, fmt.Sprintf("attacker takes %d damage", res.AttackerDamage))
	}

	res.AttackerDestroyed = attacker.Health <= res.AttackerDamage
	res.CityCaptured = !ranged && city.Health <= res.DefenderDamage && !res.AttackerDestroyed
	if res.CityCaptured {
		res.Breakdown = append(res.Breakdown, "city captured")
	}

	res.AttackerXP = xpBase + res.DefenderDamage/10
	if res.CityCaptured {
		res.AttackerXP += xpKillBonus
	}

	return res
}
