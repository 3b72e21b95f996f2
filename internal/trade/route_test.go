package trade

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/burgecon/internal/config"
	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/world"
)

func settle(id int, x, y, food, gold float64) economy.Settlement {
	return economy.Settlement{
		Settlement: world.Settlement{ID: id, Name: fmt.Sprintf("S%d", id), X: x, Y: y},
		Net:        economy.Balance{Food: food, Gold: gold},
	}
}

func TestSingleMatch(t *testing.T) {
	a := settle(1, 0, 0, 100, 0)
	b := settle(2, 10, 0, -40, 0)
	settlements := []economy.Settlement{a, b}

	flows := Route(settlements)
	require.Len(t, flows, 1)
	assert.Equal(t, Flow{
		From: 1, FromName: "S1", To: 2, ToName: "S2",
		Commodity: economy.Food, Amount: 40, Distance: 10,
	}, flows[0])

	sum := Summarize(settlements, flows)
	assert.Equal(t, []Position{{ID: 1, Name: "S1", Commodity: economy.Food, Net: 100, Exported: 40, Unsold: 60}}, sum.For(1))
	assert.Equal(t, []Position{{ID: 2, Name: "S2", Commodity: economy.Food, Net: -40, Imported: 40}}, sum.For(2))
	assert.Equal(t, 40.0, sum.Volumes[economy.Food])
	assert.Zero(t, sum.Unmet[economy.Food])
}

func TestEqualScoresKeepInputOrder(t *testing.T) {
	settlements := []economy.Settlement{
		settle(1, -10, 0, 30, 0),
		settle(2, 10, 0, 30, 0),
		settle(3, 0, 0, -50, 0),
	}

	flows := RouteCommodity(settlements, economy.Food)
	require.Len(t, flows, 2)
	assert.Equal(t, 1, flows[0].From)
	assert.Equal(t, 30.0, flows[0].Amount)
	assert.Equal(t, 2, flows[1].From)
	assert.Equal(t, 20.0, flows[1].Amount)
}

func TestScorePrefersNearAndLarge(t *testing.T) {
	settlements := []economy.Settlement{
		settle(1, 100, 0, 1000, 0), // score 1000/10000 = 0.1
		settle(2, 5, 0, 10, 0),     // score 10/25 = 0.4
		settle(3, 0, 0, -15, 0),
	}

	flows := RouteCommodity(settlements, economy.Food)
	require.Len(t, flows, 2)
	assert.Equal(t, 2, flows[0].From)
	assert.Equal(t, 10.0, flows[0].Amount)
	assert.Equal(t, 5.0, flows[0].Distance)
	assert.Equal(t, 1, flows[1].From)
	assert.Equal(t, 5.0, flows[1].Amount)
}

func TestImportersServedInInputOrder(t *testing.T) {
	settlements := []economy.Settlement{
		settle(1, 50, 0, -10, 0), // small, far, but listed first
		settle(2, 1, 0, -100, 0), // large and close
		settle(3, 0, 0, 25, 0),
	}

	flows := RouteCommodity(settlements, economy.Food)
	require.Len(t, flows, 2)
	assert.Equal(t, Flow{From: 3, FromName: "S3", To: 1, ToName: "S1", Commodity: economy.Food, Amount: 10, Distance: 50}, flows[0])
	assert.Equal(t, Flow{From: 3, FromName: "S3", To: 2, ToName: "S2", Commodity: economy.Food, Amount: 15, Distance: 1}, flows[1])

	sum := Summarize(settlements, flows)
	assert.Equal(t, 85.0, sum.Unmet[economy.Food], "unmet demand is a valid outcome")
}

func TestNoiseBand(t *testing.T) {
	settlements := []economy.Settlement{
		settle(1, 0, 0, 0.01, 0),
		settle(2, 5, 0, -0.01, 0),
		settle(3, 9, 0, 0.005, 0),
	}
	assert.Empty(t, Route(settlements))
	assert.Empty(t, Summarize(settlements, nil).Positions)
}

func TestCommoditiesAreIndependent(t *testing.T) {
	settlements := []economy.Settlement{
		settle(1, 0, 0, 10, -5),
		settle(2, 3, 4, -10, 5),
	}

	flows := Route(settlements)
	require.Len(t, flows, 2)
	assert.Equal(t, Flow{From: 1, FromName: "S1", To: 2, ToName: "S2", Commodity: economy.Food, Amount: 10, Distance: 5}, flows[0])
	assert.Equal(t, Flow{From: 2, FromName: "S2", To: 1, ToName: "S1", Commodity: economy.Gold, Amount: 5, Distance: 5}, flows[1])
}

func TestRouteDoesNotMutateInput(t *testing.T) {
	settlements := []economy.Settlement{settle(1, 0, 0, 10, 0), settle(2, 1, 0, -10, 0)}
	Route(settlements)
	assert.Equal(t, 10.0, settlements[0].Net.Food)
	assert.Equal(t, -10.0, settlements[1].Net.Food)
}

func TestConservationOnGeneratedWorld(t *testing.T) {
	store, err := config.Default()
	require.NoError(t, err)
	p, err := economy.NewProcessor(store, nil)
	require.NoError(t, err)

	cfg := world.DefaultGenConfig()
	cfg.Seed = 7
	res, err := p.Process(world.PlaceSettlements(world.Generate(cfg), cfg))
	require.NoError(t, err)

	flows := Route(res.Settlements)
	require.NotEmpty(t, flows)

	const eps = 1e-6
	sum := Summarize(res.Settlements, flows)
	for _, pos := range sum.Positions {
		if pos.Net > 0 {
			assert.LessOrEqual(t, pos.Exported, pos.Net+eps, "exporter %d %s", pos.ID, pos.Commodity)
			assert.Zero(t, pos.Imported)
		} else {
			assert.LessOrEqual(t, pos.Imported, -pos.Net+eps, "importer %d %s", pos.ID, pos.Commodity)
			assert.Zero(t, pos.Exported)
		}
	}

	seenGold := false
	for _, f := range flows {
		assert.Greater(t, f.Amount, 0.0)
		assert.GreaterOrEqual(t, f.Distance, MinDistance)
		if f.Commodity == economy.Gold {
			seenGold = true
		} else {
			assert.False(t, seenGold, "food flows come before gold flows")
		}
	}

	assert.Equal(t, flows, Route(res.Settlements), "routing is deterministic")
}
