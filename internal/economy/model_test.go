package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/burgecon/internal/config"
	"github.com/talgya/burgecon/internal/world"
)

func testStore(archetypes ...config.Archetype) *config.Store {
	return &config.Store{
		Archetypes: archetypes,
		Tiers: []config.Tier{
			{Name: "Village", MinPopulation: 0, MaxPopulation: 2000},
			{Name: "City", MinPopulation: 2000},
		},
		Economy: config.Economy{
			Quartiers: config.Quartiers{MinInhabitants: 600, MaxInhabitants: 1000},
			Area: config.AreaRequirements{
				FarmlandHaPerPersonMin: 0.4,
				FarmlandHaPerPersonMax: 0.8,
				UrbanM2PerPersonMin:    100,
				UrbanM2PerPersonMax:    250,
			},
		},
	}
}

func burg(name string, scale float64) world.Settlement {
	return world.Settlement{ID: 1, Name: name, Type: world.TypeGeneric, PopulationScale: world.Scale(scale)}
}

func TestDeriveSingleArchetype(t *testing.T) {
	store := testStore(config.Archetype{
		Name:            "Farmer",
		BaseFrequency:   1.0,
		ProductionFood:  10,
		ConsumptionFood: -4,
		ProductionGold:  1,
		ConsumptionGold: -3,
	})

	got, err := Derive(burg("Parabriz", 25), store)
	require.NoError(t, err)

	assert.Equal(t, 25000, got.Population)
	assert.Equal(t, "City", got.Tier)
	assert.Equal(t, map[string]int{"Farmer": 25000}, got.Citizens)
	assert.Equal(t, map[string]int{"Farmer": 31}, got.Quartiers)
	assert.Equal(t, 31, got.TotalQuartiers)
	assert.Equal(t, Balance{Food: 31 * 6, Gold: 31 * -2}, got.Net)
	assert.Equal(t, Area{FarmlandMinHa: 10000, FarmlandMaxHa: 20000, UrbanMinHa: 250, UrbanMaxHa: 625}, got.Area)
	assert.Equal(t, "Parabriz", got.Name, "input fields are carried through")
}

func TestDeriveZeroFrequencies(t *testing.T) {
	store := testStore(
		config.Archetype{Name: "Beggar", BaseFrequency: -0.5, ProductionGold: 1},
		config.Archetype{Name: "Noble", BaseFrequency: 0, ConsumptionFood: -10},
	)

	got, err := Derive(burg("Emptyvale", 12), store)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"Beggar": 0, "Noble": 0}, got.Citizens)
	assert.Equal(t, map[string]int{"Beggar": 0, "Noble": 0}, got.Quartiers)
	assert.Zero(t, got.TotalQuartiers)
	assert.Equal(t, Balance{}, got.Net)
}

func TestFrequencyModifiers(t *testing.T) {
	fisher := config.Archetype{
		Name:             "Fisher",
		BaseFrequency:    0.1,
		TypeModifiers:    map[string]float64{"Naval": 0.25},
		FeatureModifiers: map[string]float64{"Port": 0.5, "capital": 0.125, "walls": 1},
	}

	s := world.Settlement{
		Type:     world.TypeNaval,
		Capital:  true,
		Features: world.Features{"port": true, "walls": false, "plaza": true},
	}
	assert.InDelta(t, 0.1+0.25+0.5+0.125, Frequency(fisher, s), 1e-12)

	s.Type = "Atlantis"
	s.Features = nil
	s.Capital = false
	assert.InDelta(t, 0.1, Frequency(fisher, s), 1e-12)
}

func TestCitizensClampsNegativeFrequencies(t *testing.T) {
	archetypes := []config.Archetype{
		{Name: "Farmer", BaseFrequency: 3},
		{Name: "Beggar", BaseFrequency: -2, FeatureModifiers: map[string]float64{"shanty": 1}},
	}
	s := world.Settlement{Features: world.Features{"Shanty": true}}

	// Beggar frequency is -1 and counts as 0, not as a negative share.
	assert.Equal(t, map[string]int{"Farmer": 1000, "Beggar": 0}, Citizens(1000, archetypes, s))
}

func TestCitizensRoundingDrift(t *testing.T) {
	archetypes := []config.Archetype{
		{Name: "A", BaseFrequency: 1},
		{Name: "B", BaseFrequency: 1},
		{Name: "C", BaseFrequency: 1},
	}
	got := Citizens(1000, archetypes, world.Settlement{})
	assert.Equal(t, map[string]int{"A": 333, "B": 333, "C": 333}, got)

	// Halves round to even independently: 2.5 -> 2 for both, total 4 of 5.
	two := archetypes[:2]
	assert.Equal(t, map[string]int{"A": 2, "B": 2}, Citizens(5, two, world.Settlement{}))
}

func TestQuartiersTruncates(t *testing.T) {
	assert.Equal(t, 0, Quartiers(799, 800))
	assert.Equal(t, 1, Quartiers(800, 800))
	assert.Equal(t, 31, Quartiers(25000, 800))
	assert.Equal(t, 0, Quartiers(0, 800))
}

func TestAreaRoundsAfterConversion(t *testing.T) {
	req := config.AreaRequirements{UrbanM2PerPersonMin: 100, UrbanM2PerPersonMax: 300}
	got := AreaFor(1250, req)
	// 1250 * 100 / 10000 = 12.5 -> 12 (half to even); 37.5 -> 38.
	assert.Equal(t, 12, got.UrbanMinHa)
	assert.Equal(t, 38, got.UrbanMaxHa)
}

func TestPopulation(t *testing.T) {
	pop, err := Population(burg("A", 25.742))
	require.NoError(t, err)
	assert.Equal(t, 25742, pop)

	pop, err = Population(burg("B", 0))
	require.NoError(t, err)
	assert.Zero(t, pop)

	_, err = Population(world.Settlement{ID: 7, Name: "C"})
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	_, err = Population(burg("D", -1))
	assert.True(t, IsInputError(err))
}

func TestDeriveConfigurationErrors(t *testing.T) {
	_, err := Derive(burg("A", 1), nil)
	assert.True(t, config.IsConfigError(err))

	store := testStore(config.Archetype{Name: "Farmer", BaseFrequency: 1})
	store.Economy.Quartiers = config.Quartiers{}
	_, err = Derive(burg("A", 1), store)
	assert.True(t, config.IsConfigError(err))
}

func TestDeriveNetEqualsQuartierSum(t *testing.T) {
	store, err := config.Default()
	require.NoError(t, err)

	cfg := world.SmallTestConfig()
	settlements := world.PlaceSettlements(world.Generate(cfg), cfg)
	require.NotEmpty(t, settlements)

	for _, s := range settlements {
		got, err := Derive(s, store)
		require.NoError(t, err)

		var want Balance
		units := 0
		for _, a := range store.Archetypes {
			q := got.Quartiers[a.Name]
			units += q
			want.Food += float64(q) * (a.ProductionFood + a.ConsumptionFood)
			want.Gold += float64(q) * (a.ProductionGold + a.ConsumptionGold)
		}
		assert.Equal(t, want, got.Net, s.Name)
		assert.Equal(t, units, got.TotalQuartiers, s.Name)

		again, err := Derive(s, store)
		require.NoError(t, err)
		assert.Equal(t, got, again, "derivation is deterministic")
	}
}
