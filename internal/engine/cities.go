package engine

import (
	"fmt"

	"hexempire/internal/chain"
	"hexempire/internal/game"
)

// buyCostFactor converts production cost into a gold purchase price.
const buyCostFactor = 3

// ownedCity resolves a city that must exist and belong to playerID.
func (e *Engine) ownedCity(state *game.GameState, playerID, cityID string) (*game.City, error) {
	if err := e.requireCurrent(state, playerID); err != nil {
		return nil, err
	}
	c, found := state.Cities[cityID]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCity, cityID)
	}
	if c.OwnerID != playerID {
		return nil, ErrNotOwner
	}
	return c, nil
}

func (e *Engine) applyCityOrder(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	city, err := e.ownedCity(state, playerID, action.CityID)
	if err != nil {
		return fail(err)
	}
	switch action.Kind {
	case chain.ActionSetProduction:
		if action.Production == nil {
			return fail(ErrMissingPayload)
		}
		city.SetProduction(*action.Production)
		return ok(Effect{Kind: EffectProductionSet, PlayerID: playerID, CityID: city.ID, Detail: productionName(*action.Production)})

	case chain.ActionBuyItem:
		if action.Production == nil {
			return fail(ErrMissingPayload)
		}
		item := *action.Production
		price := item.Cost() * buyCostFactor
		owner := state.PlayerByID(playerID)
		if owner.Treasury < price {
			return fail(ErrInsufficientGold)
		}
		owner.Treasury -= price
		effects := []Effect{{Kind: EffectItemBought, PlayerID: playerID, CityID: city.ID, Amount: price, Detail: productionName(item)}}
		effects = append(effects, e.deliverProduction(state, city, item)...)
		return ok(effects...)

	case chain.ActionAssignCitizen:
		if action.Position == nil {
			return fail(ErrMissingPayload)
		}
		coord := state.Map.WrapCoord(*action.Position)
		if !city.Territory[coord] {
			return fail(fmt.Errorf("%w: tile outside territory", ErrInvalidTarget))
		}
		if !city.AssignCitizen(coord) {
			return fail(fmt.Errorf("%w: cannot assign citizen", ErrInvalidTarget))
		}
		return ok(Effect{Kind: EffectCitizenAssigned, PlayerID: playerID, CityID: city.ID, Position: &coord})

	case chain.ActionUnassignCitizen:
		if action.Position == nil {
			return fail(ErrMissingPayload)
		}
		coord := state.Map.WrapCoord(*action.Position)
		if !city.UnassignCitizen(coord) {
			return fail(fmt.Errorf("%w: cannot unassign citizen", ErrInvalidTarget))
		}
		return ok(Effect{Kind: EffectCitizenUnassigned, PlayerID: playerID, CityID: city.ID, Position: &coord})

	case chain.ActionSellBuilding:
		if action.Building == nil {
			return fail(ErrMissingPayload)
		}
		refund := city.SellBuilding(*action.Building)
		if refund < 0 {
			return fail(fmt.Errorf("%w: building not present", ErrInvalidTarget))
		}
		state.PlayerByID(playerID).Treasury += refund
		return ok(Effect{Kind: EffectBuildingSold, PlayerID: playerID, CityID: city.ID, Amount: refund, Detail: action.Building.String()})
	}
	return fail(ErrUnknownAction)
}

func productionName(item game.ProductionItem) string {
	if item.Kind == game.ProduceUnit {
		return item.Unit.String()
	}
	return item.Building.String()
}

// deliverProduction realizes a completed item: spawn the unit at the city
// center, or install the building.
func (e *Engine) deliverProduction(state *game.GameState, city *game.City, item game.ProductionItem) []Effect {
	if item.Kind == game.ProduceBuilding {
		city.Buildings[item.Building] = true
		return []Effect{{Kind: EffectProductionCompleted, PlayerID: city.OwnerID, CityID: city.ID, Detail: item.Building.String()}}
	}
	u := game.NewUnit(state.NewEntityID("unit"), city.OwnerID, item.Unit, city.Position)
	state.AddUnit(u)
	pos := city.Position
	return []Effect{
		{Kind: EffectProductionCompleted, PlayerID: city.OwnerID, CityID: city.ID, Detail: item.Unit.String()},
		{Kind: EffectUnitCreated, PlayerID: city.OwnerID, UnitID: u.ID, Position: &pos, Detail: item.Unit.String()},
	}
}

func (e *Engine) applySetResearch(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	if err := e.requireCurrent(state, playerID); err != nil {
		return fail(err)
	}
	if action.Tech == nil {
		return fail(ErrMissingPayload)
	}
	p := state.PlayerByID(playerID)
	if !p.SetResearch(*action.Tech) {
		return fail(fmt.Errorf("%w: tech already researched", ErrInvalidTarget))
	}
	return ok(Effect{Kind: EffectResearchSet, PlayerID: playerID, Detail: action.Tech.String()})
}

func (e *Engine) applyDiplomacy(state *game.GameState, playerID string, action chain.GameAction) ActionResult {
	if err := e.requireCurrent(state, playerID); err != nil {
		return fail(err)
	}
	other := action.TargetPlayerID
	if other == "" || other == playerID {
		return fail(ErrInvalidTarget)
	}
	if state.PlayerByID(other) == nil {
		return fail(ErrUnknownPlayer)
	}

	switch action.Kind {
	case chain.ActionDeclareWar:
		if state.AtWar(playerID, other) {
			return fail(ErrAlreadyAtWar)
		}
		state.DeclareWar(playerID, other)
		return ok(Effect{Kind: EffectWarDeclared, PlayerID: playerID, TargetID: other})

	case chain.ActionProposePeace:
		if !state.AtWar(playerID, other) {
			return fail(ErrNotAtWar)
		}
		state.ProposePeace(playerID, other)
		return ok(Effect{Kind: EffectPeaceProposed, PlayerID: playerID, TargetID: other})

	case chain.ActionAcceptPeace:
		proposer := state.PeaceProposer(playerID, other)
		if proposer == "" || proposer == playerID {
			return fail(fmt.Errorf("%w: no pending offer from %s", ErrInvalidTarget, other))
		}
		state.MakePeace(playerID, other)
		return ok(Effect{Kind: EffectPeaceAccepted, PlayerID: playerID, TargetID: other})

	case chain.ActionRejectPeace:
		proposer := state.PeaceProposer(playerID, other)
		if proposer == "" || proposer == playerID {
			return fail(fmt.Errorf("%w: no pending offer from %s", ErrInvalidTarget, other))
		}
		state.RejectPeace(playerID, other)
		return ok(Effect{Kind: EffectPeaceRejected, PlayerID: playerID, TargetID: other})
	}
	return fail(ErrUnknownAction)
}
