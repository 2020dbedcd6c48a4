// Package world provides the hex grid, terrain tables, and the tile map
// shared by the game state, the map generator, and pathfinding.
// Uses axial coordinates (q, r); the third cube coordinate s is derived.
package world

// HexCoord is a position on the hex grid in axial coordinates.
// It is an immutable value type: equality and map-key hashing are structural.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// hexDirections are the six neighbor offsets in axial coordinates.
var hexDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates without bounds checking.
// Callers that need in-map neighbors should use Map.Neighbors.
func (h HexCoord) Neighbors() [6]HexCoord {
	var out [6]HexCoord
	for i, d := range hexDirections {
		out[i] = HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
	}
	return out
}

// Distance returns the hex distance between two coordinates
// (max of the absolute cube-coordinate differences).
func (h HexCoord) Distance(o HexCoord) int {
	dq := absInt(h.Q - o.Q)
	dr := absInt(h.R - o.R)
	ds := absInt(h.S() - o.S())
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// Less orders coordinates by (q, r). Sorted traversal is how every
// determinism-sensitive pipeline walks the map, never map iteration order.
func (h HexCoord) Less(o HexCoord) bool {
	if h.Q != o.Q {
		return h.Q < o.Q
	}
	return h.R < o.R
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
