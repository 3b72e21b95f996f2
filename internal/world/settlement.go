package world

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Settlement types as produced by the map generator. The field is free-form;
// any other string is accepted and simply matches no type modifier.
const (
	TypeGeneric  = "Generic"
	TypeNaval    = "Naval"
	TypeRiver    = "River"
	TypeLake     = "Lake"
	TypeHighland = "Highland"
	TypeHunting  = "Hunting"
	TypeNomadic  = "Nomadic"
)

// FeatureCapital is the feature name under which the capital flag is exposed.
const FeatureCapital = "capital"

// TerrainInfo is the per-settlement terrain metadata used by trade distance.
type TerrainInfo struct {
	Height float64 `json:"height"` // 0.0 (sea level) to 1.0 (peak)
	Haven  bool    `json:"haven"`  // Coastal harbor
	Road   bool    `json:"road"`   // Connected to the road network
}

// Settlement is an input record as produced by the map loader or generator.
// It is read-only for the economic model.
type Settlement struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	Cell int     `json:"cell"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`

	// Raw population in thousands. Nil when the source record has none.
	PopulationScale *float64 `json:"population,omitempty"`

	Capital  Flag         `json:"capital"`
	Features Features     `json:"features,omitempty"`
	State    int          `json:"state"` // Owning state; 0 = neutral
	Terrain  *TerrainInfo `json:"terrain,omitempty"`
}

// Scale returns a pointer to v, for building settlements in code.
func Scale(v float64) *float64 {
	return &v
}

// ActiveFeatures returns the lowercased names of all truthy features,
// including the capital flag, sorted and without duplicates.
func (s Settlement) ActiveFeatures() []string {
	var names []string
	for name, on := range s.Features {
		if on {
			names = append(names, strings.ToLower(name))
		}
	}
	if s.Capital {
		names = append(names, FeatureCapital)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Flag is a boolean that also decodes from JSON numbers (truthy when > 0) and
// null, matching map exports that store flags as 0/1 or as feature ids.
type Flag bool

// UnmarshalJSON accepts a boolean, a number or null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*f = Flag(val)
	case float64:
		*f = val > 0
	case nil:
		*f = false
	default:
		return fmt.Errorf("unsupported flag value %v", v)
	}
	return nil
}

// Features is the open set of settlement flags (port, citadel, walls, ...).
// Values decode like Flag.
type Features map[string]bool

// UnmarshalJSON decodes every value as a Flag.
func (f *Features) UnmarshalJSON(data []byte) error {
	var raw map[string]Flag
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Features, len(raw))
	for k, v := range raw {
		out[k] = bool(v)
	}
	*f = out
	return nil
}
