// Package economy derives a settlement's economy from its population:
// citizen archetype counts, housing units ("quartiers"), net food and gold
// balances, and land requirements.
package economy

import (
	"math"

	"github.com/talgya/burgecon/internal/config"
	"github.com/talgya/burgecon/internal/world"
)

// Commodity is a tradeable resource tracked by the model.
type Commodity string

const (
	Food Commodity = "food"
	Gold Commodity = "gold"
)

// Commodities lists every commodity in routing order.
var Commodities = []Commodity{Food, Gold}

// Balance is a signed net production: positive is surplus, negative deficit.
type Balance struct {
	Food float64 `json:"net_food"`
	Gold float64 `json:"net_gold"`
}

// Of returns the balance of one commodity.
func (b Balance) Of(c Commodity) float64 {
	switch c {
	case Food:
		return b.Food
	case Gold:
		return b.Gold
	default:
		return 0
	}
}

// Area holds land requirements in hectares.
type Area struct {
	FarmlandMinHa int `json:"farmland_ha_min"`
	FarmlandMaxHa int `json:"farmland_ha_max"`
	UrbanMinHa    int `json:"urban_ha_min"`
	UrbanMaxHa    int `json:"urban_ha_max"`
}

// Settlement is an input settlement enriched with its derived economy.
// The integer Population shadows the raw scale in JSON output.
type Settlement struct {
	world.Settlement

	Population     int                `json:"population"`
	Tier           string             `json:"tier,omitempty"`
	Citizens       map[string]int     `json:"citizens"`
	Quartiers      map[string]int     `json:"quartiers"`
	TotalQuartiers int                `json:"nr_quartiers"`
	Balances       map[string]Balance `json:"quartier_balances"` // Per archetype
	Net            Balance            `json:"net_production"`
	Area           Area               `json:"area_requirements"`
}

// Population converts the raw population scale (thousands) into inhabitants.
func Population(s world.Settlement) (int, error) {
	if s.PopulationScale == nil {
		return 0, &InputError{ID: s.ID, Name: s.Name, Field: "population", Reason: "missing"}
	}
	scale := *s.PopulationScale
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return 0, &InputError{ID: s.ID, Name: s.Name, Field: "population", Reason: "must be a non-negative number"}
	}
	return int(math.RoundToEven(scale * 1000)), nil
}

// Frequency returns the unclamped citizen frequency of an archetype in a settlement:
// base + type modifier + modifiers of every truthy feature.
func Frequency(a config.Archetype, s world.Settlement) float64 {
	f := a.BaseFrequency + a.TypeModifier(s.Type)
	for _, feature := range s.ActiveFeatures() {
		if mod, ok := a.FeatureModifier(feature); ok {
			f += mod
		}
	}
	return f
}

// Citizens distributes population across archetypes proportionally to their
// effective (non-negative) frequency. Each count is rounded half-to-even on its
// own, so the total may drift from population by a few inhabitants.
func Citizens(population int, archetypes []config.Archetype, s world.Settlement) map[string]int {
	effective := make([]float64, len(archetypes))
	total := 0.0
	for i, a := range archetypes {
		effective[i] = max(0, Frequency(a, s))
		total += effective[i]
	}

	citizens := make(map[string]int, len(archetypes))
	for i, a := range archetypes {
		if total == 0 {
			citizens[a.Name] = 0
			continue
		}
		share := effective[i] / total
		citizens[a.Name] = int(math.RoundToEven(float64(population) * share))
	}
	return citizens
}

// Quartiers converts a citizen count into housing units of average capacity.
// Inhabitants of a partial unit are not housed.
func Quartiers(citizens int, capacity float64) int {
	return int(float64(citizens) / capacity)
}

// AreaFor computes land requirements for a population.
func AreaFor(population int, req config.AreaRequirements) Area {
	pop := float64(population)
	return Area{
		FarmlandMinHa: int(math.RoundToEven(pop * req.FarmlandHaPerPersonMin)),
		FarmlandMaxHa: int(math.RoundToEven(pop * req.FarmlandHaPerPersonMax)),
		UrbanMinHa:    int(math.RoundToEven(pop * req.UrbanM2PerPersonMin / 10_000)),
		UrbanMaxHa:    int(math.RoundToEven(pop * req.UrbanM2PerPersonMax / 10_000)),
	}
}

// Derive computes the economy of one settlement. It has no side effects.
// A missing or invalid population yields an *InputError; unusable
// configuration yields a *config.Error.
func Derive(s world.Settlement, store *config.Store) (Settlement, error) {
	if store == nil {
		return Settlement{}, &config.Error{Table: "store", Reason: "configuration not loaded"}
	}
	capacity := store.Economy.Quartiers.AverageCapacity()
	if capacity <= 0 || math.IsNaN(capacity) {
		return Settlement{}, &config.Error{
			Table:  config.TableEconomy,
			Field:  "quartiers",
			Reason: "average inhabitants per quartier must be positive",
		}
	}

	population, err := Population(s)
	if err != nil {
		return Settlement{}, err
	}

	out := Settlement{
		Settlement: s,
		Population: population,
		Tier:       store.TierFor(population),
		Citizens:   Citizens(population, store.Archetypes, s),
		Quartiers:  make(map[string]int, len(store.Archetypes)),
		Balances:   make(map[string]Balance, len(store.Archetypes)),
		Area:       AreaFor(population, store.Economy.Area),
	}

	// Sum in configuration order so totals are reproducible bit for bit.
	for _, a := range store.Archetypes {
		units := Quartiers(out.Citizens[a.Name], capacity)
		bal := Balance{
			Food: float64(units) * a.NetFoodPerUnit(),
			Gold: float64(units) * a.NetGoldPerUnit(),
		}
		out.Quartiers[a.Name] = units
		out.Balances[a.Name] = bal
		out.TotalQuartiers += units
		out.Net.Food += bal.Food
		out.Net.Gold += bal.Gold
	}

	return out, nil
}
