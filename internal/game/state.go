package game

import (
	"fmt"
	"sort"

	"hexempire/internal/world"
)

// Phase is the game lifecycle stage.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseActive
	PhaseEnded
)

// GameState aggregates everything the replay engine mutates. It is owned
// by exactly one goroutine at a time; there is no internal locking.
type GameState struct {
	GameID   string        `json:"gameId"`
	Seed     []byte        `json:"seed"`
	Settings *GameSettings `json:"settings,omitempty"`

	Map *world.Map `json:"-"`

	// Players in fixed rotation order.
	Players []*Player        `json:"players"`
	Units   map[string]*Unit `json:"units"`
	Cities  map[string]*City `json:"cities"`

	Turn               uint32 `json:"turn"`
	Phase              Phase  `json:"phase"`
	CurrentPlayerIndex int    `json:"currentPlayerIndex"`
	WinnerID           string `json:"winnerId,omitempty"`

	// StartPositions holds the map generator's picks, one per seat,
	// consumed when the game starts.
	StartPositions []world.HexCoord `json:"startPositions,omitempty"`

	// NextEntitySeq feeds NewEntityID. It only ever increases so a
	// replayed chain mints the same ids as the original run.
	NextEntitySeq uint32 `json:"nextEntitySeq"`

	// wars holds ordered "a|b" pair keys with a < b.
	wars map[string]bool
	// pendingPeace holds offers keyed like wars, value is the proposer.
	pendingPeace map[string]string
}

// NewGameState creates an empty lobby-phase state.
func NewGameState(gameID string, seed []byte) *GameState {
	return &GameState{
		GameID:       gameID,
		Seed:         seed,
		Units:        make(map[string]*Unit),
		Cities:       make(map[string]*City),
		wars:         make(map[string]bool),
		pendingPeace: make(map[string]string),
	}
}

// NewEntityID mints the next deterministic entity id. Unlike event ids,
// which travel on the wire, entity ids are re-derived during replay and
// must come out identical on every peer.
func (s *GameState) NewEntityID(prefix string) string {
	s.NextEntitySeq++
	return fmt.Sprintf("%s-%06d", prefix, s.NextEntitySeq)
}

// PlayerByID finds a player, or nil.
func (s *GameState) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// CurrentPlayer returns the player whose turn it is, or nil in the lobby.
func (s *GameState) CurrentPlayer() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return s.Players[s.CurrentPlayerIndex]
}

// AddPlayer appends a player to the rotation. Fails on duplicate id.
func (s *GameState) AddPlayer(p *Player) bool {
	if s.PlayerByID(p.ID) != nil {
		return false
	}
	s.Players = append(s.Players, p)
	return true
}

// AddUnit installs a unit into the collection.
func (s *GameState) AddUnit(u *Unit) {
	s.Units[u.ID] = u
}

// RemoveUnit deletes a destroyed unit.
func (s *GameState) RemoveUnit(id string) {
	delete(s.Units, id)
}

// UnitAt returns the first unit at the coordinate in sorted-id order, or
// nil. Sorted-id scan keeps lookups deterministic.
func (s *GameState) UnitAt(c world.HexCoord) *Unit {
	for _, id := range s.SortedUnitIDs() {
		if s.Units[id].Position == c {
			return s.Units[id]
		}
	}
	return nil
}

// AddCity installs a city.
func (s *GameState) AddCity(c *City) {
	s.Cities[c.ID] = c
}

// CityAt returns the city whose center is at the coordinate, or nil.
func (s *GameState) CityAt(c world.HexCoord) *City {
	for _, id := range s.SortedCityIDs() {
		if s.Cities[id].Position == c {
			return s.Cities[id]
		}
	}
	return nil
}

// SortedUnitIDs returns unit ids in lexical order. Any iteration whose
// effects reach game state or the wire must use this, never map range.
func (s *GameState) SortedUnitIDs() []string {
	ids := make([]string, 0, len(s.Units))
	for id := range s.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedCityIDs returns city ids in lexical order.
func (s *GameState) SortedCityIDs() []string {
	ids := make([]string, 0, len(s.Cities))
	for id := range s.Cities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnitsOf returns a player's units in sorted-id order.
func (s *GameState) UnitsOf(playerID string) []*Unit {
	var out []*Unit
	for _, id := range s.SortedUnitIDs() {
		if s.Units[id].OwnerID == playerID {
			out = append(out, s.Units[id])
		}
	}
	return out
}

// CitiesOf returns a player's cities in sorted-id order.
func (s *GameState) CitiesOf(playerID string) []*City {
	var out []*City
	for _, id := range s.SortedCityIDs() {
		if s.Cities[id].OwnerID == playerID {
			out = append(out, s.Cities[id])
		}
	}
	return out
}

func warKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// DeclareWar records a war between two players.
func (s *GameState) DeclareWar(a, b string) {
	s.wars[warKey(a, b)] = true
}

// MakePeace ends a war between two players.
func (s *GameState) MakePeace(a, b string) {
	delete(s.wars, warKey(a, b))
	delete(s.pendingPeace, warKey(a, b))
}

// ProposePeace records a peace offer from proposer toward the other side.
func (s *GameState) ProposePeace(proposer, other string) {
	s.pendingPeace[warKey(proposer, other)] = proposer
}

// PeaceProposer returns who offered peace between the pair, or "".
func (s *GameState) PeaceProposer(a, b string) string {
	return s.pendingPeace[warKey(a, b)]
}

// RejectPeace withdraws a pending offer between the pair.
func (s *GameState) RejectPeace(a, b string) {
	delete(s.pendingPeace, warKey(a, b))
}

// AtWar reports whether two players are at war.
func (s *GameState) AtWar(a, b string) bool {
	return s.wars[warKey(a, b)]
}

// AdvanceToNextPlayer rotates to the next non-eliminated player, wrapping
// the turn counter when the rotation completes. Returns true when a new
// turn began.
func (s *GameState) AdvanceToNextPlayer() bool {
	if len(s.Players) == 0 {
		return false
	}
	newTurn := false
	for i := 0; i < len(s.Players); i++ {
		s.CurrentPlayerIndex++
		if s.CurrentPlayerIndex >= len(s.Players) {
			s.CurrentPlayerIndex = 0
			s.Turn++
			newTurn = true
		}
		if !s.Players[s.CurrentPlayerIndex].Eliminated {
			return newTurn
		}
	}
	return newTurn
}
