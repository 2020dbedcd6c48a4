package game

import "errors"

// Settings validation failures, checked before game creation and never
// mid-game.
var (
	ErrEmptyName             = errors.New("game name is empty")
	ErrNameTooLong           = errors.New("game name too long")
	ErrTooFewPlayers         = errors.New("too few players")
	ErrTooManyPlayers        = errors.New("too many players")
	ErrMapTooSmallForPlayers = errors.New("map too small for player count")
)

// Settings bounds.
const (
	MaxGameNameLen = 64
	MinPlayers     = 2
	MaxPlayers     = 8

	// Each player needs enough land for a reasonable start position.
	minTilesPerPlayer = 60
)

// GameSettings is everything a CreateGame action fixes about a match.
type GameSettings struct {
	Name            string  `json:"name"`
	MapWidth        int     `json:"mapWidth"`
	MapHeight       int     `json:"mapHeight"`
	WrapX           bool    `json:"wrapX"`
	WaterPercentage float64 `json:"waterPercentage"`
	NumPlayers      int     `json:"numPlayers"`
}

// DefaultSettings returns a 2-player duel setup.
func DefaultSettings(name string) GameSettings {
	return GameSettings{
		Name:            name,
		MapWidth:        40,
		MapHeight:       24,
		WrapX:           true,
		WaterPercentage: 0.4,
		NumPlayers:      2,
	}
}

// Validate checks the settings, returning the first violation found.
func (s GameSettings) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if len(s.Name) > MaxGameNameLen {
		return ErrNameTooLong
	}
	if s.NumPlayers < MinPlayers {
		return ErrTooFewPlayers
	}
	if s.NumPlayers > MaxPlayers {
		return ErrTooManyPlayers
	}
	if s.MapWidth*s.MapHeight < s.NumPlayers*minTilesPerPlayer {
		return ErrMapTooSmallForPlayers
	}
	return nil
}
