// Package mapgen builds the world deterministically from a 32-byte seed.
//
// Every random draw comes from one SeededRng, and every pass that draws
// per-tile randomness walks tiles in sorted coordinate order. Identical
// (seed, config) therefore produce tile-for-tile identical maps on every
// peer, which the replay contract depends on.
package mapgen

import (
	"fmt"
	"sort"

	"hexempire/internal/random"
	"hexempire/internal/world"
)

// Config holds the generation parameters.
type Config struct {
	Width           int
	Height          int
	WrapX           bool
	WaterPercentage float64 // fraction of tiles under water, 0..1
	Players         int     // starting positions to select
}

// DefaultConfig returns a small continents setup.
func DefaultConfig() Config {
	return Config{
		Width:           40,
		Height:          24,
		WrapX:           true,
		WaterPercentage: 0.4,
		Players:         4,
	}
}

// Generator produces one map per instance. The RNG is owned by the
// generator, never shared.
type Generator struct {
	cfg Config
	rng *random.SeededRng
}

// NewGenerator creates a generator for the given seed and config.
func NewGenerator(seed [random.SeedSize]byte, cfg Config) *Generator {
	return &Generator{cfg: cfg, rng: random.NewSeededRng(seed)}
}

// Result carries the generated map and the selected starting positions,
// ordered best-score first.
type Result struct {
	Map            *world.Map
	StartPositions []world.HexCoord
}

// Generate runs the full pipeline: heightmap, terrain bucketing, features,
// resources, rivers, starting positions.
func (g *Generator) Generate() (*Result, error) {
	if g.cfg.Width <= 0 || g.cfg.Height <= 0 {
		return nil, fmt.Errorf("mapgen: invalid dimensions %dx%d", g.cfg.Width, g.cfg.Height)
	}

	heights := g.heightmap()
	m := g.assignTerrain(heights)
	g.placeFeatures(m)
	g.placeResources(m)
	g.traceRivers(m, heights)

	starts := g.selectStartPositions(m)
	if len(starts) < g.cfg.Players {
		return nil, fmt.Errorf("mapgen: found %d start positions for %d players", len(starts), g.cfg.Players)
	}

	return &Result{Map: m, StartPositions: starts[:g.cfg.Players]}, nil
}

// octave weights for the 4-layer value noise.
var octaveWeights = [4]float32{0.5, 0.25, 0.15, 0.1}

// octave cell sizes, coarse to fine.
var octaveCells = [4]int{8, 4, 2, 1}

// heightmap builds the blended multi-octave value-noise field, one entry
// per tile in row-major order.
func (g *Generator) heightmap() []float32 {
	w, h := g.cfg.Width, g.cfg.Height
	heights := make([]float32, w*h)

	for o := 0; o < 4; o++ {
		cell := octaveCells[o]
		gw := w/cell + 2
		gh := h/cell + 2

		// Coarse grid drawn up front, row-major, so the draw order is a
		// pure function of (seed, config).
		grid := make([]float32, gw*gh)
		for i := range grid {
			grid[i] = g.rng.Float32()
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				gx := x / cell
				gy := y / cell
				fx := float32(x%cell) / float32(cell)
				fy := float32(y%cell) / float32(cell)

				v00 := grid[gy*gw+gx]
				v10 := grid[gy*gw+gx+1]
				v01 := grid[(gy+1)*gw+gx]
				v11 := grid[(gy+1)*gw+gx+1]

				top := v00 + (v10-v00)*fx
				bot := v01 + (v11-v01)*fx
				heights[y*w+x] += (top + (bot-top)*fy) * octaveWeights[o]
			}
		}
	}
	return heights
}

// latitude returns 0 at the equator rising to 1 at the poles.
func (g *Generator) latitude(r int) float32 {
	half := float32(g.cfg.Height-1) / 2
	if half == 0 {
		return 0
	}
	d := float32(r) - half
	if d < 0 {
		d = -d
	}
	return d / half
}

// assignTerrain buckets heights into terrain using the water-percentage
// threshold and latitude bands. The desert-vs-plains split at altitude is
// a seeded coin flip, drawn in row-major tile order.
func (g *Generator) assignTerrain(heights []float32) *world.Map {
	w, h := g.cfg.Width, g.cfg.Height
	m := world.NewMap(w, h, g.cfg.WrapX)

	// The water level is the height at the configured percentile.
	sorted := make([]float32, len(heights))
	copy(sorted, heights)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(g.cfg.WaterPercentage * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	waterLevel := sorted[idx]

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			height := heights[y*w+x]
			lat := g.latitude(y)
			coord := world.HexCoord{Q: x, R: y}

			var terrain world.Terrain
			switch {
			case height < waterLevel*0.85:
				terrain = world.TerrainOcean
			case height < waterLevel:
				terrain = world.TerrainCoast
			case lat > 0.9:
				terrain = world.TerrainSnow
			case lat > 0.75:
				terrain = world.TerrainTundra
			case height > waterLevel+0.35:
				terrain = world.TerrainMountain
			case height > waterLevel+0.25:
				terrain = world.TerrainHills
			case height > waterLevel+0.18 && lat < 0.4:
				// Hot highlands split between desert and plains.
				if g.rng.Chance(0.5) {
					terrain = world.TerrainDesert
				} else {
					terrain = world.TerrainPlains
				}
			case lat < 0.3:
				terrain = world.TerrainGrassland
			default:
				terrain = world.TerrainPlains
			}

			m.SetTile(&world.Tile{Coord: coord, Terrain: terrain})
		}
	}
	return m
}

// featureChance maps terrain to (feature, probability). Drawn per tile in
// sorted coordinate order.
func (g *Generator) placeFeatures(m *world.Map) {
	for _, c := range m.SortedCoords() {
		tile := m.TileAt(c)
		switch tile.Terrain {
		case world.TerrainGrassland:
			if g.rng.Chance(0.25) {
				tile.Feature = world.FeatureForest
			}
		case world.TerrainPlains:
			if g.rng.Chance(0.2) {
				tile.Feature = world.FeatureForest
			} else if g.rng.Chance(0.1) {
				tile.Feature = world.FeatureJungle
			}
		case world.TerrainDesert:
			if g.rng.Chance(0.05) {
				tile.Feature = world.FeatureOasis
			}
		case world.TerrainTundra:
			if g.rng.Chance(0.1) {
				tile.Feature = world.FeatureForest
			}
		}
	}
}

// resourceChance: each eligible tile rolls once, again in sorted order.
func (g *Generator) placeResources(m *world.Map) {
	for _, c := range m.SortedCoords() {
		tile := m.TileAt(c)
		if !g.rng.Chance(0.12) {
			continue
		}
		switch {
		case tile.Terrain == world.TerrainCoast:
			tile.Resource = world.ResourceFish
		case tile.Terrain == world.TerrainHills:
			options := []world.Resource{world.ResourceIron, world.ResourceStone, world.ResourceGold, world.ResourceGems}
			tile.Resource = options[g.rng.Range(uint32(len(options)))]
		case tile.Terrain == world.TerrainGrassland && tile.Feature == world.FeatureNone:
			options := []world.Resource{world.ResourceWheat, world.ResourceCattle, world.ResourceHorses}
			tile.Resource = options[g.rng.Range(uint32(len(options)))]
		case tile.Terrain == world.TerrainPlains && tile.Feature == world.FeatureNone:
			tile.Resource = world.ResourceWheat
		case tile.Terrain == world.TerrainTundra:
			tile.Resource = world.ResourceFurs
		}
	}
}

const maxRiverSteps = 20

// traceRivers picks hill origins by direct coordinate sampling and follows
// each downhill toward water: the first water neighbor if one exists, else
// the first neighbor, for at most maxRiverSteps steps.
func (g *Generator) traceRivers(m *world.Map, heights []float32) {
	riverCount := (g.cfg.Width * g.cfg.Height) / 200
	if riverCount < 1 {
		riverCount = 1
	}

	for i := 0; i < riverCount; i++ {
		origin := world.HexCoord{
			Q: int(g.rng.Range(uint32(g.cfg.Width))),
			R: int(g.rng.Range(uint32(g.cfg.Height))),
		}
		tile := m.TileAt(origin)
		if tile == nil || tile.Terrain != world.TerrainHills {
			continue
		}
		g.traceRiverFrom(m, origin)
	}
}

func (g *Generator) traceRiverFrom(m *world.Map, origin world.HexCoord) {
	current := origin
	for step := 0; step < maxRiverSteps; step++ {
		tile := m.TileAt(current)
		if tile == nil || tile.Terrain.IsWater() {
			return
		}

		neighbors := m.Neighbors(current)
		if len(neighbors) == 0 {
			return
		}

		next := neighbors[0]
		edge := 0
		for i, n := range neighbors {
			if m.TileAt(n).Terrain.IsWater() {
				next = n
				edge = i
				break
			}
		}

		tile.RiverEdges[edge%6] = true
		current = next
	}
}

// startScore weights a candidate's radius-2 surroundings.
func (g *Generator) startScore(m *world.Map, c world.HexCoord) int {
	score := 0
	for _, n := range m.TilesWithin(c, 2) {
		tile := m.TileAt(n)
		score += tile.Yields().Total() * 2
		if tile.Resource != world.ResourceNone {
			score += 3
		}
		if tile.HasFreshWater() {
			score += 4
		}
		if tile.Terrain == world.TerrainMountain {
			score -= 2
		}
	}
	return score
}

const minStartDistance = 6

// selectStartPositions scores land tiles, sorts by score descending with a
// coordinate tie-break, and greedily accepts positions keeping the minimum
// pairwise hex distance.
func (g *Generator) selectStartPositions(m *world.Map) []world.HexCoord {
	type candidate struct {
		coord world.HexCoord
		score int
	}

	var candidates []candidate
	for _, c := range m.SortedCoords() {
		tile := m.TileAt(c)
		if tile.Terrain.IsWater() || tile.Terrain.IsImpassable() {
			continue
		}
		candidates = append(candidates, candidate{coord: c, score: g.startScore(m, c)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].coord.Less(candidates[j].coord)
	})

	var starts []world.HexCoord
	for _, cand := range candidates {
		ok := true
		for _, s := range starts {
			if cand.coord.Distance(s) < minStartDistance {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, cand.coord)
		}
	}
	return starts
}
