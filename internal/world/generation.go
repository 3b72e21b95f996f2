package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius        int     // Hex grid radius
	Seed          int64   // Every seed, including 0, yields one fixed world
	SeaLevel      float64 // Elevation below which a hex is ocean
	HighlandLevel float64 // Elevation above which a hex is mountain
	HexSize       float64 // Map units between adjacent hex centers
	MaxRivers     int
}

// DefaultGenConfig returns the configuration used by the command line.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:        22,
		SeaLevel:      0.25,
		HighlandLevel: 0.72,
		HexSize:       10,
		MaxRivers:     10,
	}
}

// SmallTestConfig returns a small world for tests.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Radius = 8
	cfg.Seed = 42
	cfg.SeaLevel = 0.30
	cfg.HighlandLevel = 0.75
	return cfg
}

// noiseLayer is one fractal simplex field.
type noiseLayer struct {
	src       opensimplex.Noise
	octaves   int
	frequency float64
}

// at sums octaves of halving amplitude and doubling frequency, normalized to 0..1.
func (l noiseLayer) at(x, y float64) float64 {
	var sum, norm float64
	amp, freq := 1.0, l.frequency
	for range l.octaves {
		sum += amp * l.src.Eval2(x*freq, y*freq)
		norm += amp
		amp /= 2
		freq *= 2
	}
	return sum / norm
}

// Generate builds the hex map for cfg. The result depends only on cfg.
func Generate(cfg GenConfig) *Map {
	elevation := noiseLayer{opensimplex.NewNormalized(cfg.Seed), 4, 0.08}
	rainfall := noiseLayer{opensimplex.NewNormalized(cfg.Seed + 1), 3, 0.06}
	warmth := noiseLayer{opensimplex.NewNormalized(cfg.Seed + 2), 3, 0.05}

	m := NewMap(cfg.Radius)
	radius := float64(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}
			x, y := coord.Cartesian(1)

			// Sink the rim so the land mass is surrounded by sea.
			rim := math.Hypot(x, y) / radius
			elev := elevation.at(x, y) * max(0, 1-math.Pow(rim, 3.5))

			// Colder toward the poles and at altitude.
			temp := 0.6*warmth.at(x, y) + 0.3*(1-math.Abs(y)/radius) + 0.1*(1-elev)

			h := &Hex{
				Coord:       coord,
				Elevation:   elev,
				Rainfall:    rainfall.at(x, y),
				Temperature: temp,
			}
			h.Terrain = cfg.classify(h)
			m.Set(h)
		}
	}

	m.markCoasts()
	m.carveRivers(rand.New(rand.NewSource(cfg.Seed+100)), cfg.MaxRivers)
	return m
}

func (cfg GenConfig) classify(h *Hex) Terrain {
	switch {
	case h.Elevation < cfg.SeaLevel:
		return TerrainOcean
	case h.Elevation > cfg.HighlandLevel:
		return TerrainMountain
	case h.Temperature < 0.25:
		return TerrainTundra
	case h.Rainfall < 0.25 && h.Temperature > 0.5:
		return TerrainDesert
	case h.Rainfall > 0.7 && h.Elevation < 0.45:
		return TerrainSwamp
	case h.Rainfall > 0.45 && h.Elevation > 0.45:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

// markCoasts turns low-lying plains and forest next to the sea into coast.
func (m *Map) markCoasts() {
	var shore []*Hex
	for _, c := range m.Coords() {
		h := m.Get(c)
		if h.Elevation < 0.5 && (h.Terrain == TerrainPlains || h.Terrain == TerrainForest) && m.IsCoastal(c) {
			shore = append(shore, h)
		}
	}
	for _, h := range shore {
		h.Terrain = TerrainCoast
	}
}

// carveRivers runs up to limit rivers downhill from randomly chosen high ground.
func (m *Map) carveRivers(rng *rand.Rand, limit int) {
	var springs []HexCoord
	for _, c := range m.Coords() {
		if h := m.Get(c); h.Terrain != TerrainOcean && h.Elevation > 0.65 {
			springs = append(springs, c)
		}
	}
	rng.Shuffle(len(springs), func(i, j int) { springs[i], springs[j] = springs[j], springs[i] })

	n := min(max(len(springs)/8, 2), limit, len(springs))
	for _, c := range springs[:n] {
		m.flowFrom(c)
	}
}

// flowFrom marks a river along the steepest descent from start. It stops at
// the sea or in a basin with no lower unvisited neighbour.
func (m *Map) flowFrom(start HexCoord) {
	const maxLength = 50
	seen := map[HexCoord]bool{}
	at := start

	for range maxLength {
		seen[at] = true
		h := m.Get(at)
		if h == nil || h.Terrain == TerrainOcean {
			return
		}
		if h.Terrain != TerrainMountain && h.Terrain != TerrainCoast {
			h.Terrain = TerrainRiver
		}

		lowest, found := h.Elevation, false
		var next HexCoord
		for _, nc := range at.Neighbors() {
			if nh := m.Get(nc); nh != nil && !seen[nc] && nh.Elevation < lowest {
				lowest, next, found = nh.Elevation, nc, true
			}
		}
		if !found {
			return
		}
		at = next
	}
}

var terrainNames = map[Terrain]string{
	TerrainPlains:   "Plains",
	TerrainForest:   "Forest",
	TerrainMountain: "Mountain",
	TerrainCoast:    "Coast",
	TerrainRiver:    "River",
	TerrainDesert:   "Desert",
	TerrainSwamp:    "Swamp",
	TerrainTundra:   "Tundra",
	TerrainOcean:    "Ocean",
}

// TerrainCounts returns how many hexes have each terrain.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, h := range m.Hexes {
		counts[h.Terrain]++
	}
	return counts
}

// TerrainName returns the display name of t.
func TerrainName(t Terrain) string {
	if name, ok := terrainNames[t]; ok {
		return name
	}
	return "Unknown"
}
