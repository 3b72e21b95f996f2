package world

import (
	"fmt"
	"slices"
)

// Map holds the complete hex grid.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"`
	Radius int               `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	return &Map{
		Hexes:  make(map[HexCoord]*Hex),
		Radius: radius,
	}
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return max(abs(coord.Q), abs(coord.R), abs(coord.S())) <= m.Radius
}

// Coords returns every coordinate on the map in a stable order.
// Map iteration is randomized, so anything seeded must walk hexes through here.
func (m *Map) Coords() []HexCoord {
	coords := make([]HexCoord, 0, len(m.Hexes))
	for c := range m.Hexes {
		coords = append(coords, c)
	}
	slices.SortFunc(coords, func(a, b HexCoord) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return coords
}

// IsCoastal reports whether a land hex touches the ocean.
func (m *Map) IsCoastal(coord HexCoord) bool {
	hex := m.Get(coord)
	if hex == nil || hex.Terrain == TerrainOcean {
		return false
	}
	for _, nc := range coord.Neighbors() {
		if nh := m.Get(nc); nh != nil && nh.Terrain == TerrainOcean {
			return true
		}
	}
	return false
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}
