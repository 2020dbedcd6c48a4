package game

import (
	"container/heap"

	"hexempire/internal/world"
)

// MoveCostScale is the fixed-point scale for movement costs: the minimum
// real step cost is 10, which makes hexdist*10 an admissible heuristic.
const MoveCostScale = 10

// MovementRules captures what the pathfinder needs to know about the
// moving unit.
type MovementRules struct {
	Category UnitCategory
	Embarked bool
}

// RulesFor derives movement rules from a unit.
func RulesFor(u *Unit) MovementRules {
	return MovementRules{Category: u.Type.Stats().Category, Embarked: u.Embarked}
}

// CanEnter reports whether a tile is passable under the rules: naval
// units need water, land and civilian units need passable land unless
// embarked, air units ignore terrain.
func (r MovementRules) CanEnter(t *world.Tile) bool {
	if t == nil {
		return false
	}
	switch r.Category {
	case CategoryAir:
		return true
	case CategoryNaval:
		return t.Terrain.IsWater()
	default:
		if t.Terrain.IsWater() {
			return r.Embarked
		}
		return !t.Terrain.IsImpassable()
	}
}

// StepCost is the fixed-point cost of entering the tile under the rules.
func (r MovementRules) StepCost(t *world.Tile) int {
	if r.Category == CategoryAir || r.Category == CategoryNaval || r.Embarked {
		return MoveCostScale
	}
	return t.MovementCost()
}

// Path is a found route including both endpoints, with the total
// fixed-point cost.
type Path struct {
	Tiles []world.HexCoord
	Cost  int
}

// pathNode is a priority-queue entry. Tie-breaking is (f, then g)
// ascending, then insertion order so equal nodes pop deterministically.
type pathNode struct {
	coord world.HexCoord
	f     int
	g     int
	seq   int
	index int
}

type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g < h[j].g
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// FindPath runs A* from start to goal under the rules. Returns nil when
// no path exists; never panics on disconnected graphs. A path from a tile
// to itself is the single-element path with cost 0.
func FindPath(m *world.Map, start, goal world.HexCoord, rules MovementRules) *Path {
	start = m.WrapCoord(start)
	goal = m.WrapCoord(goal)

	if m.TileAt(start) == nil || m.TileAt(goal) == nil {
		return nil
	}
	if start == goal {
		return &Path{Tiles: []world.HexCoord{start}, Cost: 0}
	}
	if !rules.CanEnter(m.TileAt(goal)) {
		return nil
	}

	open := &nodeHeap{}
	heap.Init(open)

	gScore := map[world.HexCoord]int{start: 0}
	cameFrom := map[world.HexCoord]world.HexCoord{}
	closed := map[world.HexCoord]bool{}

	seq := 0
	heap.Push(open, &pathNode{coord: start, f: start.Distance(goal) * MoveCostScale, g: 0, seq: seq})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if closed[current.coord] {
			continue
		}
		closed[current.coord] = true

		if current.coord == goal {
			return reconstruct(cameFrom, start, goal, current.g)
		}

		for _, n := range m.Neighbors(current.coord) {
			if closed[n] || !rules.CanEnter(m.TileAt(n)) {
				continue
			}
			g := current.g + rules.StepCost(m.TileAt(n))
			if best, seen := gScore[n]; seen && g >= best {
				continue
			}
			gScore[n] = g
			cameFrom[n] = current.coord
			seq++
			heap.Push(open, &pathNode{
				coord: n,
				g:     g,
				f:     g + n.Distance(goal)*MoveCostScale,
				seq:   seq,
			})
		}
	}

	return nil
}

func reconstruct(cameFrom map[world.HexCoord]world.HexCoord, start, goal world.HexCoord, cost int) *Path {
	tiles := []world.HexCoord{goal}
	for cur := goal; cur != start; {
		cur = cameFrom[cur]
		tiles = append(tiles, cur)
	}
	for i, j := 0, len(tiles)-1; i < j; i, j = i+1, j-1 {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}
	return &Path{Tiles: tiles, Cost: cost}
}

// FindReachable is the budget-capped Dijkstra variant: it returns every
// coordinate reachable within the fixed-point movement budget, mapped to
// its cheapest cost, including the origin at cost 0.
func FindReachable(m *world.Map, start world.HexCoord, budget int, rules MovementRules) map[world.HexCoord]int {
	start = m.WrapCoord(start)
	reached := map[world.HexCoord]int{}
	if m.TileAt(start) == nil || budget < 0 {
		return reached
	}
	reached[start] = 0

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &pathNode{coord: start})

	seq := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.g > reached[current.coord] {
			continue
		}
		for _, n := range m.Neighbors(current.coord) {
			if !rules.CanEnter(m.TileAt(n)) {
				continue
			}
			g := current.g + rules.StepCost(m.TileAt(n))
			if g > budget {
				continue
			}
			if best, seen := reached[n]; seen && g >= best {
				continue
			}
			reached[n] = g
			seq++
			heap.Push(open, &pathNode{coord: n, g: g, f: g, seq: seq})
		}
	}
	return reached
}

// ValidatePath checks a stored path is legal for the rules: it starts and
// ends where claimed, every hop is between adjacent tiles, and every tile
// is passable. Replayed MoveUnit events carry their path rather than
// recomputing it, so legality is checked instead of recomputed.
func ValidatePath(m *world.Map, path []world.HexCoord, rules MovementRules) bool {
	if len(path) == 0 {
		return false
	}
	for i, c := range path {
		tile := m.TileAt(c)
		if tile == nil {
			return false
		}
		if i > 0 {
			if m.WrapCoord(path[i-1]).Distance(m.WrapCoord(c)) != 1 && !wrapAdjacent(m, path[i-1], c) {
				return false
			}
			if !rules.CanEnter(tile) {
				return false
			}
		}
	}
	return true
}

// wrapAdjacent handles adjacency across the horizontal wrap seam.
func wrapAdjacent(m *world.Map, a, b world.HexCoord) bool {
	if !m.WrapX {
		return false
	}
	for _, n := range m.Neighbors(m.WrapCoord(a)) {
		if n == m.WrapCoord(b) {
			return true
		}
	}
	return false
}
