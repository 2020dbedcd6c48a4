package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"hexempire/internal/chain"
	"hexempire/internal/game"
	"hexempire/internal/random"
	"hexempire/internal/world"
)

func testSeed(b byte) [random.SeedSize]byte {
	var s [random.SeedSize]byte
	for i := range s {
		s[i] = b + byte(i)
	}
	return s
}

func testProof(b byte) *random.Proof {
	seed := testSeed(b)
	return &random.Proof{RandomBytes: seed[:]}
}

// flatMap builds an all-grassland map so movement and combat tests are
// not hostage to terrain.
func flatMap(w, h int) *world.Map {
	m := world.NewMap(w, h, false)
	for r := 0; r < h; r++ {
		for q := 0; q < w; q++ {
			m.SetTile(&world.Tile{
				Coord:   world.HexCoord{Q: q, R: r},
				Terrain: world.TerrainGrassland,
			})
		}
	}
	return m
}

// activeState builds a two-player mid-game state without going through
// the lobby.
func activeState(t *testing.T) *game.GameState {
	t.Helper()
	seed := testSeed(7)
	s := game.NewGameState("g1", seed[:])
	s.Map = flatMap(12, 12)
	s.AddPlayer(game.NewPlayer("alice", "alice", "Alice", "", "#e74c3c"))
	s.AddPlayer(game.NewPlayer("bob", "bob", "Bob", "", "#3498db"))
	s.Phase = game.PhaseActive
	s.Turn = 1
	return s
}

func TestCreateGameRequiresProofAndValidSettings(t *testing.T) {
	e := New(nil)
	settings := game.DefaultSettings("duel")

	s := game.NewGameState("g1", nil)
	res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionCreateGame, Settings: &settings}, nil)
	if res.Success || !errors.Is(res.Err, ErrMissingProof) {
		t.Fatalf("expected ErrMissingProof, got %v", res.Err)
	}

	bad := settings
	bad.Name = ""
	res = e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionCreateGame, Settings: &bad}, testProof(1))
	if res.Success || !errors.Is(res.Err, game.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", res.Err)
	}
	if s.Map != nil {
		t.Fatal("failed create must not leave a map behind")
	}
}

func TestLobbyLifecycle(t *testing.T) {
	e := New(nil)
	settings := game.GameSettings{
		Name: "duel", MapWidth: 16, MapHeight: 10,
		WrapX: true, WaterPercentage: 0.3, NumPlayers: 2,
	}

	s := game.NewGameState("g1", nil)
	res := e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionCreateGame, Settings: &settings, PlayerName: "Alice",
	}, testProof(3))
	if !res.Success {
		t.Fatalf("create failed: %v", res.Err)
	}
	if s.Map == nil || len(s.StartPositions) < 2 {
		t.Fatal("create must generate a map and start positions")
	}

	// Starting before enough players joined is rejected.
	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionStartGame}, nil); res.Success {
		t.Fatal("start with one player must fail")
	}

	if res := e.Apply(s, "bob", chain.GameAction{Kind: chain.ActionJoinGame, PlayerName: "Bob"}, nil); !res.Success {
		t.Fatalf("join failed: %v", res.Err)
	}
	if res := e.Apply(s, "bob", chain.GameAction{Kind: chain.ActionJoinGame}, nil); res.Success {
		t.Fatal("double join must fail")
	}
	// Lobby is full at NumPlayers.
	if res := e.Apply(s, "carol", chain.GameAction{Kind: chain.ActionJoinGame}, nil); res.Success {
		t.Fatal("join past the seat limit must fail")
	}

	res = e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionStartGame}, nil)
	if !res.Success {
		t.Fatalf("start failed: %v", res.Err)
	}
	if s.Phase != game.PhaseActive || s.Turn != 1 {
		t.Fatalf("expected active turn 1, got phase %d turn %d", s.Phase, s.Turn)
	}
	for _, p := range s.Players {
		units := s.UnitsOf(p.ID)
		if len(units) != len(startingUnits) {
			t.Fatalf("player %s has %d starting units", p.ID, len(units))
		}
		if len(p.Explored) == 0 {
			t.Fatalf("player %s explored nothing at start", p.ID)
		}
	}
}

func TestMoveUnitSpendsMovementAndValidatesPath(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	u := game.NewUnit("unit-000001", "alice", game.UnitWarrior, world.HexCoord{Q: 2, R: 2})
	s.AddUnit(u)

	path := []world.HexCoord{{Q: 2, R: 2}, {Q: 3, R: 2}, {Q: 4, R: 2}}
	res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionMoveUnit, UnitID: u.ID, Path: path}, nil)
	if !res.Success {
		t.Fatalf("move failed: %v", res.Err)
	}
	if u.Position != (world.HexCoord{Q: 4, R: 2}) {
		t.Fatalf("unit at %v", u.Position)
	}
	if u.Movement != 0 {
		t.Fatalf("expected 0 movement left, got %d", u.Movement)
	}

	// Out of movement now.
	res = e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionMoveUnit, UnitID: u.ID,
		Path: []world.HexCoord{{Q: 4, R: 2}, {Q: 5, R: 2}},
	}, nil)
	if res.Success || !errors.Is(res.Err, ErrInsufficientMovement) {
		t.Fatalf("expected ErrInsufficientMovement, got %v", res.Err)
	}

	// Disconnected path.
	u.Movement = 20
	res = e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionMoveUnit, UnitID: u.ID,
		Path: []world.HexCoord{{Q: 4, R: 2}, {Q: 7, R: 2}},
	}, nil)
	if res.Success || !errors.Is(res.Err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", res.Err)
	}
	if u.Position != (world.HexCoord{Q: 4, R: 2}) {
		t.Fatal("rejected move must not change position")
	}

	// Occupied destination.
	s.AddUnit(game.NewUnit("unit-000002", "alice", game.UnitScout, world.HexCoord{Q: 5, R: 2}))
	res = e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionMoveUnit, UnitID: u.ID,
		Path: []world.HexCoord{{Q: 4, R: 2}, {Q: 5, R: 2}},
	}, nil)
	if res.Success || !errors.Is(res.Err, ErrTileOccupied) {
		t.Fatalf("expected ErrTileOccupied, got %v", res.Err)
	}
}

func TestTurnOrderEnforced(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	u := game.NewUnit("unit-000001", "bob", game.UnitWarrior, world.HexCoord{Q: 5, R: 5})
	s.AddUnit(u)

	res := e.Apply(s, "bob", chain.GameAction{
		Kind: chain.ActionMoveUnit, UnitID: u.ID,
		Path: []world.HexCoord{{Q: 5, R: 5}, {Q: 6, R: 5}},
	}, nil)
	if res.Success || !errors.Is(res.Err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", res.Err)
	}
}

func TestAttackUnitRequiresWarProofAndRange(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	attacker := game.NewUnit("unit-000001", "alice", game.UnitWarrior, world.HexCoord{Q: 3, R: 3})
	defender := game.NewUnit("unit-000002", "bob", game.UnitWarrior, world.HexCoord{Q: 4, R: 3})
	s.AddUnit(attacker)
	s.AddUnit(defender)

	attack := chain.GameAction{Kind: chain.ActionAttackUnit, UnitID: attacker.ID, TargetUnitID: defender.ID}

	res := e.Apply(s, "alice", attack, testProof(9))
	if res.Success || !errors.Is(res.Err, ErrNotAtWar) {
		t.Fatalf("expected ErrNotAtWar, got %v", res.Err)
	}
	s.DeclareWar("alice", "bob")

	if res := e.Apply(s, "alice", attack, nil); res.Success || !errors.Is(res.Err, ErrMissingProof) {
		t.Fatalf("expected ErrMissingProof, got %v", res.Err)
	}

	res = e.Apply(s, "alice", attack, testProof(9))
	if !res.Success {
		t.Fatalf("attack failed: %v", res.Err)
	}
	if defender.Health >= 100 {
		t.Fatal("defender took no damage")
	}
	if attacker.Movement != 0 || !attacker.HasActed {
		t.Fatal("attacking must exhaust the attacker")
	}

	// Exhausted attacker cannot strike twice.
	if res := e.Apply(s, "alice", attack, testProof(9)); res.Success || !errors.Is(res.Err, ErrUnitExhausted) {
		t.Fatalf("expected ErrUnitExhausted, got %v", res.Err)
	}

	// Melee from two tiles away is out of range.
	far := game.NewUnit("unit-000003", "alice", game.UnitWarrior, world.HexCoord{Q: 6, R: 3})
	s.AddUnit(far)
	res = e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionAttackUnit, UnitID: far.ID, TargetUnitID: defender.ID,
	}, testProof(9))
	if res.Success || !errors.Is(res.Err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", res.Err)
	}
}

func TestMeleeKillAdvancesIntoTile(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	s.DeclareWar("alice", "bob")
	attacker := game.NewUnit("unit-000001", "alice", game.UnitSwordsman, world.HexCoord{Q: 3, R: 3})
	defender := game.NewUnit("unit-000002", "bob", game.UnitWarrior, world.HexCoord{Q: 4, R: 3})
	defender.Health = 1
	s.AddUnit(attacker)
	s.AddUnit(defender)

	res := e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionAttackUnit, UnitID: attacker.ID, TargetUnitID: defender.ID,
	}, testProof(5))
	if !res.Success {
		t.Fatalf("attack failed: %v", res.Err)
	}
	if _, alive := s.Units[defender.ID]; alive {
		t.Fatal("defender at 1 health should die")
	}
	if attacker.Position != (world.HexCoord{Q: 4, R: 3}) {
		t.Fatalf("attacker should advance, at %v", attacker.Position)
	}
	if attacker.Experience == 0 {
		t.Fatal("kill must grant experience")
	}
}

func TestFoundCityConsumesSettler(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	settler := game.NewUnit("unit-000001", "alice", game.UnitSettler, world.HexCoord{Q: 4, R: 4})
	s.AddUnit(settler)

	res := e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionFoundCity, UnitID: settler.ID, CityName: "Alpha",
	}, nil)
	if !res.Success {
		t.Fatalf("found city failed: %v", res.Err)
	}
	if _, alive := s.Units[settler.ID]; alive {
		t.Fatal("settler must be consumed")
	}
	cities := s.CitiesOf("alice")
	if len(cities) != 1 || !cities[0].Capital {
		t.Fatal("first city must be the capital")
	}
	if s.Map.TileAt(world.HexCoord{Q: 4, R: 4}).OwnerID != "alice" {
		t.Fatal("city center must be owned")
	}
	p := s.PlayerByID("alice")
	if p.Score.Total == 0 {
		t.Fatal("founding a city must score")
	}

	// A second settler right next door is too close.
	second := game.NewUnit("unit-000002", "alice", game.UnitSettler, world.HexCoord{Q: 5, R: 4})
	s.AddUnit(second)
	res = e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionFoundCity, UnitID: second.ID}, nil)
	if res.Success || !errors.Is(res.Err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", res.Err)
	}
}

func TestEndTurnProcessesCitiesAndRotates(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	city := game.NewCity("city-000001", "alice", "Alpha", world.HexCoord{Q: 4, R: 4}, true)
	s.AddCity(city)
	city.SetProduction(game.UnitProduction(game.UnitWarrior))

	endTurn := chain.GameAction{Kind: chain.ActionEndTurn}
	turnsNeeded := 0
	for turn := 0; turn < 40 && len(s.UnitsOf("alice")) == 0; turn++ {
		if res := e.Apply(s, "alice", endTurn, nil); !res.Success {
			t.Fatalf("alice end turn: %v", res.Err)
		}
		if res := e.Apply(s, "bob", endTurn, nil); !res.Success {
			t.Fatalf("bob end turn: %v", res.Err)
		}
		turnsNeeded++
	}
	units := s.UnitsOf("alice")
	if len(units) != 1 || units[0].Type != game.UnitWarrior {
		t.Fatalf("expected one warrior, got %v", units)
	}
	if turnsNeeded == 0 || turnsNeeded > 30 {
		t.Fatalf("warrior took %d turns", turnsNeeded)
	}
	if s.Turn != uint32(1+turnsNeeded) {
		t.Fatalf("turn counter %d after %d rounds", s.Turn, turnsNeeded)
	}
	if s.PlayerByID("alice").Treasury == 0 {
		t.Fatal("city gold never reached the treasury")
	}
}

func TestResearchCompletesThroughEndTurn(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	city := game.NewCity("city-000001", "alice", "Alpha", world.HexCoord{Q: 4, R: 4}, true)
	city.Buildings[game.BuildingLibrary] = true
	s.AddCity(city)

	res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionSetResearch, Tech: techPtr(game.TechAgriculture)}, nil)
	if !res.Success {
		t.Fatalf("set research: %v", res.Err)
	}

	endTurn := chain.GameAction{Kind: chain.ActionEndTurn}
	completed := false
	for turn := 0; turn < 40 && !completed; turn++ {
		r := e.Apply(s, "alice", endTurn, nil)
		if !r.Success {
			t.Fatalf("end turn: %v", r.Err)
		}
		for _, eff := range r.Effects {
			if eff.Kind == EffectTechCompleted {
				completed = true
			}
		}
		if r := e.Apply(s, "bob", endTurn, nil); !r.Success {
			t.Fatalf("end turn: %v", r.Err)
		}
	}
	if !completed {
		t.Fatal("agriculture never completed")
	}
	if !s.PlayerByID("alice").Researched[game.TechAgriculture] {
		t.Fatal("tech not recorded")
	}
}

func techPtr(t game.TechType) *game.TechType { return &t }

func TestDiplomacyFlow(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	endTurn := chain.GameAction{Kind: chain.ActionEndTurn}

	res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionDeclareWar, TargetPlayerID: "bob"}, nil)
	if !res.Success {
		t.Fatalf("declare war: %v", res.Err)
	}
	if !s.AtWar("alice", "bob") {
		t.Fatal("war not recorded")
	}
	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionDeclareWar, TargetPlayerID: "bob"}, nil); res.Success {
		t.Fatal("double declaration must fail")
	}

	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionProposePeace, TargetPlayerID: "bob"}, nil); !res.Success {
		t.Fatalf("propose peace: %v", res.Err)
	}
	// The proposer cannot accept their own offer.
	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionAcceptPeace, TargetPlayerID: "bob"}, nil); res.Success {
		t.Fatal("self-acceptance must fail")
	}
	if res := e.Apply(s, "alice", endTurn, nil); !res.Success {
		t.Fatalf("end turn: %v", res.Err)
	}
	if res := e.Apply(s, "bob", chain.GameAction{Kind: chain.ActionAcceptPeace, TargetPlayerID: "alice"}, nil); !res.Success {
		t.Fatalf("accept peace: %v", res.Err)
	}
	if s.AtWar("alice", "bob") {
		t.Fatal("war should be over")
	}
}

// stateDigest flattens the replayed state into comparable JSON.
func stateDigest(t *testing.T, s *game.GameState) string {
	t.Helper()
	digest := struct {
		Turn    uint32
		Phase   game.Phase
		Current int
		NextSeq uint32
		Units   map[string]*game.Unit
		Cities  map[string]*game.City
		Players []*game.Player
	}{s.Turn, s.Phase, s.CurrentPlayerIndex, s.NextEntitySeq, s.Units, s.Cities, s.Players}
	raw, err := json.Marshal(digest)
	if err != nil {
		t.Fatalf("marshal digest: %v", err)
	}
	return string(raw)
}

func TestReplayIsDeterministic(t *testing.T) {
	settings := game.GameSettings{
		Name: "replay", MapWidth: 16, MapHeight: 10,
		WrapX: true, WaterPercentage: 0.3, NumPlayers: 2,
	}
	actions := []struct {
		player string
		action chain.GameAction
		proof  *random.Proof
	}{
		{"alice", chain.GameAction{Kind: chain.ActionCreateGame, Settings: &settings, PlayerName: "Alice"}, testProof(11)},
		{"bob", chain.GameAction{Kind: chain.ActionJoinGame, PlayerName: "Bob"}, nil},
		{"alice", chain.GameAction{Kind: chain.ActionStartGame}, nil},
		{"alice", chain.GameAction{Kind: chain.ActionEndTurn}, nil},
		{"bob", chain.GameAction{Kind: chain.ActionEndTurn}, nil},
		{"alice", chain.GameAction{Kind: chain.ActionDeclareWar, TargetPlayerID: "bob"}, nil},
		{"alice", chain.GameAction{Kind: chain.ActionEndTurn}, nil},
		{"bob", chain.GameAction{Kind: chain.ActionEndTurn}, nil},
	}

	var events []*chain.GameEvent
	var seq uint32
	prev := ""
	for i, a := range actions {
		ev := chain.NewEvent("replay-game", a.player, prev, 1, seq, a.action)
		ev.ID = events2id(i)
		ev.Proof = a.proof
		events = append(events, ev)
		prev = ev.ID
		seq++
	}

	e := New(nil)
	first, err := e.Replay("replay-game", nil, events)
	if err != nil {
		t.Fatalf("first replay: %v", err)
	}
	second, err := e.Replay("replay-game", nil, events)
	if err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if stateDigest(t, first) != stateDigest(t, second) {
		t.Fatal("replaying the same events produced different states")
	}
}

func events2id(i int) string {
	return "ev-" + string(rune('a'+i))
}

func TestReplayStopsAtCorruptEvent(t *testing.T) {
	e := New(nil)
	ev := chain.NewEvent("g1", "alice", "", 1, 0, chain.GameAction{Kind: chain.ActionMoveUnit, UnitID: "ghost"})
	ev.ID = "ev-bad"
	_, err := e.Replay("g1", nil, []*chain.GameEvent{ev})
	var replayErr *ReplayError
	if !errors.As(err, &replayErr) {
		t.Fatalf("expected ReplayError, got %v", err)
	}
	if replayErr.EventID != "ev-bad" || replayErr.Index != 0 {
		t.Fatalf("wrong failure location: %+v", replayErr)
	}
}

func TestEndGameSetsWinner(t *testing.T) {
	e := New(nil)
	s := activeState(t)
	res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionEndGame, WinnerID: "bob"}, nil)
	if !res.Success {
		t.Fatalf("end game: %v", res.Err)
	}
	if s.Phase != game.PhaseEnded || s.WinnerID != "bob" {
		t.Fatalf("phase %d winner %q", s.Phase, s.WinnerID)
	}
	// Nothing works after the game ends.
	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionEndTurn}, nil); res.Success {
		t.Fatal("actions after game end must fail")
	}
}

// TestDuelScenario walks the full path from lobby to production: seeded
// map, founding at the scored start position, and a warrior (cost 40)
// at 10 production per turn completing on exactly the fourth turn.
func TestDuelScenario(t *testing.T) {
	e := New(nil)
	settings := game.DefaultSettings("duel")

	s := game.NewGameState("g1", nil)
	if res := e.Apply(s, "alice", chain.GameAction{
		Kind: chain.ActionCreateGame, Settings: &settings, PlayerName: "Alice",
	}, testProof(7)); !res.Success {
		t.Fatalf("create: %v", res.Err)
	}
	if res := e.Apply(s, "bob", chain.GameAction{Kind: chain.ActionJoinGame}, nil); !res.Success {
		t.Fatalf("join: %v", res.Err)
	}
	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionStartGame}, nil); !res.Success {
		t.Fatalf("start: %v", res.Err)
	}

	var settler *game.Unit
	for _, u := range s.UnitsOf("alice") {
		if u.Type == game.UnitSettler {
			settler = u
		}
	}
	if settler == nil {
		t.Fatal("alice has no settler")
	}
	if settler.Position != s.StartPositions[0] {
		t.Fatalf("settler at %v, start position is %v", settler.Position, s.StartPositions[0])
	}

	if res := e.Apply(s, "alice", chain.GameAction{Kind: chain.ActionFoundCity, UnitID: settler.ID}, nil); !res.Success {
		t.Fatalf("found city: %v", res.Err)
	}

	cities := s.CitiesOf("alice")
	if len(cities) != 1 || !cities[0].Capital {
		t.Fatal("founding on the start position must produce the capital")
	}

	city := cities[0]
	city.QueueProduction(game.UnitProduction(game.UnitWarrior))
	y := world.NewYields(2, 10, 0, 0, 0)
	for turn := 1; turn <= 3; turn++ {
		if res := city.ProcessTurn(y); res.CompletedProduction != nil {
			t.Fatalf("production completed early on turn %d", turn)
		}
	}
	res := city.ProcessTurn(y)
	if res.CompletedProduction == nil || res.CompletedProduction.Unit != game.UnitWarrior {
		t.Fatal("warrior did not complete on turn 4")
	}
}
