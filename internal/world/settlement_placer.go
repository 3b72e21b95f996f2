// Settlement placement: finds suitable locations and turns them into settlement records.
package world

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
)

// SettlementSize categorizes settlement scale during placement.
type SettlementSize uint8

const (
	SizeVillage SettlementSize = iota // 100–2,000 inhabitants
	SizeTown                          // 2,000–10,000 inhabitants
	SizeCity                          // 10,000–60,000 inhabitants; capital of a state
)

// Minimum hex spacing between settlements of each size.
const (
	minCityDist    = 8
	minTownDist    = 4
	minVillageDist = 2

	// Settlements farther than this from every capital stay neutral.
	maxStateReach = 2 * minCityDist
)

type site struct {
	coord HexCoord
	size  SettlementSize
	score float64
}

// PlaceSettlements picks settlement locations on the map and builds the input
// records for the economic model: type, population, features, owning state,
// and terrain metadata. Output is deterministic for a given map and seed.
func PlaceSettlements(m *Map, cfg GenConfig) []Settlement {
	rng := rand.New(rand.NewSource(cfg.Seed + 200))
	hexSize := cfg.HexSize
	if hexSize <= 0 {
		hexSize = 1
	}

	// Score every land hex for settlement desirability.
	var candidates []site
	for _, coord := range m.Coords() {
		hex := m.Get(coord)
		if hex.Terrain == TerrainOcean {
			continue
		}
		if s := settlementScore(m, coord, hex); s > 0 {
			candidates = append(candidates, site{coord: coord, score: s})
		}
	}

	// Best first; ties fall back to coordinate order so placement is reproducible.
	slices.SortStableFunc(candidates, func(a, b site) int {
		return cmp.Compare(b.score, a.score)
	})

	var sites []site
	taken := make(map[HexCoord]bool)
	pick := func(size SettlementSize, want, minDist int) {
		placed := 0
		for _, c := range candidates {
			if placed >= want {
				break
			}
			if taken[c.coord] || tooClose(c.coord, sites, minDist) {
				continue
			}
			taken[c.coord] = true
			c.size = size
			sites = append(sites, c)
			placed++
		}
	}

	pick(SizeCity, 3+rng.Intn(3), minCityDist)
	pick(SizeTown, 10+rng.Intn(11), minTownDist)
	pick(SizeVillage, 30+rng.Intn(21), minVillageDist)

	names := generateNames(rng, len(sites))
	cells := make(map[HexCoord]int, len(m.Hexes))
	for i, c := range m.Coords() {
		cells[c] = i
	}

	settlements := make([]Settlement, 0, len(sites))
	for i, st := range sites {
		hex := m.Get(st.coord)
		x, y := st.coord.Cartesian(hexSize)
		coastal := m.IsCoastal(st.coord)

		settlements = append(settlements, Settlement{
			ID:              i + 1,
			Name:            names[i],
			Cell:            cells[st.coord],
			X:               round2(x),
			Y:               round2(y),
			Type:            settlementType(hex, coastal),
			PopulationScale: Scale(populationForSize(st.size, rng)),
			Capital:         st.size == SizeCity,
			Features:        rollFeatures(st.size, coastal, rng),
			State:           owningState(st, sites),
			Terrain: &TerrainInfo{
				Height: round2(hex.Elevation),
				Haven:  coastal,
				Road:   hasRoad(st, sites, hex),
			},
		})
	}

	return settlements
}

// settlementScore evaluates how desirable a hex is for a settlement.
// Prefers coast (havens), rivers (water and trade), fertile plains.
func settlementScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainCoast:
		score += 4.0
	case TerrainRiver:
		score += 3.5
	case TerrainForest:
		score += 1.5
	case TerrainDesert, TerrainSwamp, TerrainTundra:
		score += 0.5
	case TerrainMountain:
		score += 0.3
	default:
		return 0
	}

	// Nearby terrain diversity.
	terrainTypes := make(map[Terrain]bool)
	waterAccess := false
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh == nil || nh.Terrain == TerrainOcean {
			continue
		}
		terrainTypes[nh.Terrain] = true
		if nh.Terrain == TerrainRiver || nh.Terrain == TerrainCoast {
			waterAccess = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3
	if waterAccess {
		score += 0.5
	}

	// Rain-fed land feeds more people.
	score += hex.Rainfall * 0.4

	return score
}

func settlementType(hex *Hex, coastal bool) string {
	if coastal {
		return TypeNaval
	}
	switch hex.Terrain {
	case TerrainRiver:
		return TypeRiver
	case TerrainSwamp:
		return TypeLake
	case TerrainMountain:
		return TypeHighland
	case TerrainForest:
		return TypeHunting
	case TerrainDesert, TerrainTundra:
		return TypeNomadic
	default:
		return TypeGeneric
	}
}

// populationForSize returns the raw population in thousands, 3 decimals.
func populationForSize(size SettlementSize, rng *rand.Rand) float64 {
	var v float64
	switch size {
	case SizeCity:
		v = 10 + rng.Float64()*50
	case SizeTown:
		v = 2 + rng.Float64()*8
	default:
		v = 0.1 + rng.Float64()*1.9
	}
	return math.Round(v*1000) / 1000
}

func rollFeatures(size SettlementSize, coastal bool, rng *rand.Rand) Features {
	f := Features{}
	switch size {
	case SizeCity:
		f["port"] = coastal
		f["citadel"] = true
		f["walls"] = true
		f["plaza"] = true
		f["temple"] = true
		f["shanty"] = rng.Float64() < 0.5
	case SizeTown:
		f["port"] = coastal && rng.Float64() < 0.8
		f["citadel"] = rng.Float64() < 0.2
		f["walls"] = rng.Float64() < 0.5
		f["plaza"] = rng.Float64() < 0.6
		f["temple"] = rng.Float64() < 0.4
		f["shanty"] = rng.Float64() < 0.1
	default:
		f["port"] = coastal && rng.Float64() < 0.3
		f["plaza"] = rng.Float64() < 0.1
		f["temple"] = rng.Float64() < 0.2
	}
	return f
}

// owningState assigns each settlement to the nearest capital. Cities are
// capitals of states numbered by placement order; ties go to the older state.
func owningState(st site, sites []site) int {
	best, bestDist := 0, maxStateReach+1
	for i, other := range sites {
		if other.size != SizeCity {
			continue
		}
		if d := Distance(st.coord, other.coord); d < bestDist {
			best, bestDist = i+1, d
		}
	}
	return best
}

// hasRoad connects cities, towns, river villages, and villages near a town or city.
func hasRoad(st site, sites []site, hex *Hex) bool {
	if st.size != SizeVillage || hex.Terrain == TerrainRiver {
		return true
	}
	for _, other := range sites {
		if other.size != SizeVillage && Distance(st.coord, other.coord) <= 3 {
			return true
		}
	}
	return false
}

func tooClose(coord HexCoord, existing []site, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural settlement names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
