package world

import "sort"

// Map owns every tile of the game world. Tiles are dense: every in-bounds
// coordinate has exactly one tile. Storage is an unordered map for O(1)
// lookup; order-sensitive consumers must walk SortedCoords instead of
// ranging over the map.
type Map struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	WrapX  bool `json:"wrapX"`

	tiles map[HexCoord]*Tile

	// sorted is the cached (q, r)-ordered coordinate index, rebuilt lazily.
	sorted []HexCoord
}

// NewMap allocates an empty map of the given dimensions. Tiles are filled
// in by the generator (or tests) via SetTile.
func NewMap(width, height int, wrapX bool) *Map {
	return &Map{
		Width:  width,
		Height: height,
		WrapX:  wrapX,
		tiles:  make(map[HexCoord]*Tile, width*height),
	}
}

// WrapCoord normalizes q into [0, width) when horizontal wrap is enabled.
// Idempotent: wrapping an already-wrapped coordinate is a no-op.
func (m *Map) WrapCoord(c HexCoord) HexCoord {
	if !m.WrapX || m.Width <= 0 {
		return c
	}
	q := c.Q % m.Width
	if q < 0 {
		q += m.Width
	}
	return HexCoord{Q: q, R: c.R}
}

// InBounds reports whether the (wrapped) coordinate lies on the map.
func (m *Map) InBounds(c HexCoord) bool {
	c = m.WrapCoord(c)
	return c.Q >= 0 && c.Q < m.Width && c.R >= 0 && c.R < m.Height
}

// TileAt returns the tile at the (wrapped) coordinate, or nil when out of
// bounds.
func (m *Map) TileAt(c HexCoord) *Tile {
	return m.tiles[m.WrapCoord(c)]
}

// SetTile installs a tile at its own coordinate, wrapping first.
func (m *Map) SetTile(t *Tile) {
	t.Coord = m.WrapCoord(t.Coord)
	if _, exists := m.tiles[t.Coord]; !exists {
		m.sorted = nil
	}
	m.tiles[t.Coord] = t
}

// TileCount returns the number of tiles currently installed.
func (m *Map) TileCount() int {
	return len(m.tiles)
}

// Neighbors returns the in-bounds neighbor coordinates of c, wrapped.
// Out-of-bounds (unwrapped) neighbors are excluded, so edge tiles have
// fewer than six.
func (m *Map) Neighbors(c HexCoord) []HexCoord {
	out := make([]HexCoord, 0, 6)
	for _, n := range c.Neighbors() {
		if m.InBounds(n) {
			out = append(out, m.WrapCoord(n))
		}
	}
	return out
}

// SortedCoords returns every tile coordinate in (q, r) order. This is the
// only sanctioned traversal wherever output feeds seed-derived randomness
// or any other order-sensitive computation.
func (m *Map) SortedCoords() []HexCoord {
	if m.sorted == nil || len(m.sorted) != len(m.tiles) {
		coords := make([]HexCoord, 0, len(m.tiles))
		for c := range m.tiles {
			coords = append(coords, c)
		}
		sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
		m.sorted = coords
	}
	return m.sorted
}

// TilesWithin returns the coordinates within the given hex radius of
// center (inclusive), restricted to the map, in sorted order.
func (m *Map) TilesWithin(center HexCoord, radius int) []HexCoord {
	out := make([]HexCoord, 0, 1+3*radius*(radius+1))
	for dq := -radius; dq <= radius; dq++ {
		for dr := -radius; dr <= radius; dr++ {
			c := HexCoord{Q: center.Q + dq, R: center.R + dr}
			if center.Distance(c) > radius {
				continue
			}
			if m.InBounds(c) {
				out = append(out, m.WrapCoord(c))
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
