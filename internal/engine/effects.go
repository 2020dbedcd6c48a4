package engine

import "hexempire/internal/world"

// EffectKind tags one discrete state mutation.
type EffectKind string

const (
	EffectGameCreated  EffectKind = "game_created"
	EffectPlayerJoined EffectKind = "player_joined"
	EffectGameStarted  EffectKind = "game_started"
	EffectGameEnded    EffectKind = "game_ended"
	EffectTurnEnded    EffectKind = "turn_ended"

	EffectUnitCreated   EffectKind = "unit_created"
	EffectUnitMoved     EffectKind = "unit_moved"
	EffectUnitDamaged   EffectKind = "unit_damaged"
	EffectUnitDestroyed EffectKind = "unit_destroyed"
	EffectUnitFortified EffectKind = "unit_fortified"
	EffectUnitSlept     EffectKind = "unit_slept"
	EffectUnitWoke      EffectKind = "unit_woke"
	EffectUnitDeleted   EffectKind = "unit_deleted"
	EffectUnitUpgraded  EffectKind = "unit_upgraded"

	EffectCityFounded         EffectKind = "city_founded"
	EffectCityDamaged         EffectKind = "city_damaged"
	EffectCityCaptured        EffectKind = "city_captured"
	EffectCityGrew            EffectKind = "city_grew"
	EffectCityStarved         EffectKind = "city_starved"
	EffectBordersExpanded     EffectKind = "borders_expanded"
	EffectProductionCompleted EffectKind = "production_completed"
	EffectProductionSet       EffectKind = "production_set"
	EffectItemBought          EffectKind = "item_bought"
	EffectBuildingSold        EffectKind = "building_sold"
	EffectCitizenAssigned     EffectKind = "citizen_assigned"
	EffectCitizenUnassigned   EffectKind = "citizen_unassigned"

	EffectImprovementBuilt EffectKind = "improvement_built"
	EffectRoadBuilt        EffectKind = "road_built"
	EffectFeatureRemoved   EffectKind = "feature_removed"

	EffectResearchSet   EffectKind = "research_set"
	EffectTechCompleted EffectKind = "tech_completed"

	EffectWarDeclared      EffectKind = "war_declared"
	EffectPeaceProposed    EffectKind = "peace_proposed"
	EffectPeaceAccepted    EffectKind = "peace_accepted"
	EffectPeaceRejected    EffectKind = "peace_rejected"
	EffectPlayerEliminated EffectKind = "player_eliminated"

	EffectRandomRequested EffectKind = "random_requested"
	EffectRandomProvided  EffectKind = "random_provided"
)

// Effect is one mutation the engine performed. Only the fields relevant
// to the kind are set. The sync layer maps effects onto dirty entities.
type Effect struct {
	Kind EffectKind `json:"kind"`

	PlayerID string `json:"playerId,omitempty"`
	TargetID string `json:"targetId,omitempty"`
	UnitID   string `json:"unitId,omitempty"`
	CityID   string `json:"cityId,omitempty"`

	Position *world.HexCoord `json:"position,omitempty"`
	Amount   int             `json:"amount,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}
