// Package world provides the hex-grid world map, procedural generation, and the
// settlement input records consumed by the economic model.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "math"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Cartesian converts the hex center to plane coordinates for a hex of the given size.
func (h HexCoord) Cartesian(size float64) (x, y float64) {
	x = (float64(h.Q) + float64(h.R)*0.5) * size
	y = float64(h.R) * math.Sqrt(3.0) / 2.0 * size
	return x, y
}

// Less orders coordinates by q then r.
func (h HexCoord) Less(o HexCoord) bool {
	if h.Q != o.Q {
		return h.Q < o.Q
	}
	return h.R < o.R
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Farmland
	TerrainForest                  // Hunting grounds
	TerrainMountain                // Highlands
	TerrainCoast                   // Land next to ocean; havens
	TerrainRiver                   // Freshwater and river trade
	TerrainDesert                  // Nomadic
	TerrainSwamp
	TerrainTundra // Nomadic
	TerrainOcean  // Impassable, never settled
)

// Hex represents a single tile on the world map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	Elevation   float64 `json:"elevation"`   // 0.0 (sea level) to 1.0 (peak)
	Rainfall    float64 `json:"rainfall"`    // 0.0 (arid) to 1.0 (tropical)
	Temperature float64 `json:"temperature"` // 0.0 (frozen) to 1.0 (hot)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
