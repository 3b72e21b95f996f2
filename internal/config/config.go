// Package config holds the economy tables shared by every settlement in a run:
// citizen archetypes, settlement tiers, and economy constants.
// Tables are loaded once per run and never mutated afterwards.
package config

import (
	"fmt"
	"strings"
)

// Archetype is a worker profession template. Rates are per housing unit
// ("quartier"); consumption rates are authored as non-positive numbers so
// that production + consumption is the net balance.
type Archetype struct {
	Name          string  `yaml:"name"`
	BaseFrequency float64 `yaml:"base_frequency"` // May be negative

	// Additive frequency modifiers keyed by settlement type ("Naval", "Generic", ...).
	TypeModifiers map[string]float64 `yaml:"type_modifiers,omitempty"`
	// Additive frequency modifiers keyed by boolean settlement feature.
	// Keys are matched case-insensitively.
	FeatureModifiers map[string]float64 `yaml:"feature_modifiers,omitempty"`

	ProductionFood  float64 `yaml:"production_food"`
	ConsumptionFood float64 `yaml:"consumption_food"`
	ProductionGold  float64 `yaml:"production_gold"`
	ConsumptionGold float64 `yaml:"consumption_gold"`
}

// TypeModifier returns the modifier for a settlement type, or 0 if none is defined.
func (a Archetype) TypeModifier(settlementType string) float64 {
	return a.TypeModifiers[settlementType]
}

// FeatureModifier returns the modifier for a feature, matched case-insensitively.
func (a Archetype) FeatureModifier(feature string) (float64, bool) {
	if v, ok := a.FeatureModifiers[feature]; ok {
		return v, true
	}
	want := strings.ToLower(feature)
	for k, v := range a.FeatureModifiers {
		if strings.ToLower(k) == want {
			return v, true
		}
	}
	return 0, false
}

// NetFoodPerUnit returns food production plus (non-positive) consumption.
func (a Archetype) NetFoodPerUnit() float64 {
	return a.ProductionFood + a.ConsumptionFood
}

// NetGoldPerUnit returns gold production plus (non-positive) consumption.
func (a Archetype) NetGoldPerUnit() float64 {
	return a.ProductionGold + a.ConsumptionGold
}

// Tier classifies settlements by population. MaxPopulation 0 means unbounded.
type Tier struct {
	Name          string `yaml:"name"`
	MinPopulation int    `yaml:"min_population"`
	MaxPopulation int    `yaml:"max_population"`
}

// Contains reports whether population falls in [MinPopulation, MaxPopulation).
func (t Tier) Contains(population int) bool {
	if population < t.MinPopulation {
		return false
	}
	return t.MaxPopulation == 0 || population < t.MaxPopulation
}

// Quartiers bounds the number of inhabitants housed by one unit.
type Quartiers struct {
	MinInhabitants float64 `yaml:"min_inhabitants_per_quartier"`
	MaxInhabitants float64 `yaml:"max_inhabitants_per_quartier"`
}

// AverageCapacity is the mean of the min and max inhabitants per quartier.
func (q Quartiers) AverageCapacity() float64 {
	return (q.MinInhabitants + q.MaxInhabitants) / 2
}

// AreaRequirements are per-person land needs. Farmland is given in hectares,
// urban area in square meters.
type AreaRequirements struct {
	FarmlandHaPerPersonMin float64 `yaml:"farmland_ha_per_person_min"`
	FarmlandHaPerPersonMax float64 `yaml:"farmland_ha_per_person_max"`
	UrbanM2PerPersonMin    float64 `yaml:"urban_m2_per_person_min"`
	UrbanM2PerPersonMax    float64 `yaml:"urban_m2_per_person_max"`
}

// Economy holds the scalar constants of the model.
type Economy struct {
	Quartiers Quartiers        `yaml:"quartiers"`
	Area      AreaRequirements `yaml:"area_requirements"`
}

// Store is the complete configuration of a run.
type Store struct {
	Archetypes []Archetype
	Tiers      []Tier
	Economy    Economy
}

// Archetype looks up an archetype by name.
func (s *Store) Archetype(name string) (Archetype, bool) {
	for _, a := range s.Archetypes {
		if a.Name == name {
			return a, true
		}
	}
	return Archetype{}, false
}

// TierFor returns the name of the first tier containing population,
// or "" when no tier matches.
func (s *Store) TierFor(population int) string {
	for _, t := range s.Tiers {
		if t.Contains(population) {
			return t.Name
		}
	}
	return ""
}

// Validate checks that the store can drive the economic model.
func (s *Store) Validate() error {
	if s == nil {
		return &Error{Table: "store", Reason: "configuration not loaded"}
	}
	if len(s.Archetypes) == 0 {
		return &Error{Table: TableCitizens, Field: "citizens", Reason: "no archetypes defined"}
	}

	seen := make(map[string]bool, len(s.Archetypes))
	for i, a := range s.Archetypes {
		if a.Name == "" {
			return &Error{Table: TableCitizens, Field: fmt.Sprintf("citizens[%d].name", i), Reason: "missing"}
		}
		if seen[a.Name] {
			return &Error{Table: TableCitizens, Field: a.Name, Reason: "duplicate archetype"}
		}
		seen[a.Name] = true

		lowered := make(map[string]string, len(a.FeatureModifiers))
		for k := range a.FeatureModifiers {
			lk := strings.ToLower(k)
			if prev, dup := lowered[lk]; dup {
				return &Error{
					Table:  TableCitizens,
					Field:  a.Name + ".feature_modifiers",
					Reason: fmt.Sprintf("keys %q and %q differ only by case", prev, k),
				}
			}
			lowered[lk] = k
		}
	}

	for i, t := range s.Tiers {
		if t.Name == "" {
			return &Error{Table: TableTiers, Field: fmt.Sprintf("tiers[%d].name", i), Reason: "missing"}
		}
		if t.MaxPopulation != 0 && t.MaxPopulation <= t.MinPopulation {
			return &Error{Table: TableTiers, Field: t.Name, Reason: "max_population must exceed min_population"}
		}
	}

	q := s.Economy.Quartiers
	if q.MinInhabitants < 0 {
		return &Error{Table: TableEconomy, Field: "quartiers.min_inhabitants_per_quartier", Reason: "must not be negative"}
	}
	if !(q.AverageCapacity() > 0) {
		return &Error{Table: TableEconomy, Field: "quartiers", Reason: "average inhabitants per quartier must be positive"}
	}
	if q.MaxInhabitants < q.MinInhabitants {
		return &Error{Table: TableEconomy, Field: "quartiers.max_inhabitants_per_quartier", Reason: "must be at least the minimum"}
	}
	return nil
}
