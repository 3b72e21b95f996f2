// Package trade routes commodity surpluses to deficits between settlements
// with a greedy gravity model: each importer, in input order, buys from the
// exporters with the highest supply / distance² first.
package trade

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/talgya/burgecon/internal/economy"
)

// NoiseThreshold is the band around zero within which a settlement neither
// exports nor imports.
const NoiseThreshold = 0.01

// Flow is one shipment of a commodity from an exporter to an importer.
type Flow struct {
	From      int               `json:"from_id"`
	FromName  string            `json:"from_name"`
	To        int               `json:"to_id"`
	ToName    string            `json:"to_name"`
	Commodity economy.Commodity `json:"commodity"`
	Amount    float64           `json:"amount"`
	Distance  float64           `json:"distance"` // Effective distance used for the match
}

// party is an exporter or importer with its remaining supply or demand.
type party struct {
	s         *economy.Settlement
	remaining float64
}

type candidate struct {
	exporter *party
	score    float64
	distance float64
}

// Route matches every commodity independently and returns all flows,
// food first then gold, each in generation order. Commodities are routed
// concurrently; settlements are only read.
func Route(settlements []economy.Settlement) []Flow {
	perCommodity := make([][]Flow, len(economy.Commodities))

	var wg sync.WaitGroup
	for i, c := range economy.Commodities {
		wg.Add(1)
		go func() {
			defer wg.Done()
			perCommodity[i] = RouteCommodity(settlements, c)
		}()
	}
	wg.Wait()

	return lo.Flatten(perCommodity)
}

// RouteCommodity runs the matching for one commodity. Importers are served in
// input order and exporter supply carries over between importers, so earlier
// importers get first pick. Demand left once supply runs out is not reported.
func RouteCommodity(settlements []economy.Settlement, c economy.Commodity) []Flow {
	var exporters, importers []*party
	for i := range settlements {
		s := &settlements[i]
		net := s.Net.Of(c)
		switch {
		case net > NoiseThreshold:
			exporters = append(exporters, &party{s: s, remaining: net})
		case net < -NoiseThreshold:
			importers = append(importers, &party{s: s, remaining: -net})
		}
	}

	var flows []Flow
	candidates := make([]candidate, 0, len(exporters))

	for _, imp := range importers {
		candidates = candidates[:0]
		for _, exp := range exporters {
			if exp.remaining <= 0 {
				continue
			}
			d := scoringDistance(imp.s.Settlement, exp.s.Settlement)
			candidates = append(candidates, candidate{
				exporter: exp,
				score:    exp.remaining / (d * d),
				distance: d,
			})
		}

		// Equal scores keep exporter input order.
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return cmp.Compare(b.score, a.score)
		})

		for _, cand := range candidates {
			if imp.remaining <= 0 {
				break
			}
			amount := min(imp.remaining, cand.exporter.remaining)
			if amount <= 0 {
				continue
			}
			flows = append(flows, Flow{
				From:      cand.exporter.s.ID,
				FromName:  cand.exporter.s.Name,
				To:        imp.s.ID,
				ToName:    imp.s.Name,
				Commodity: c,
				Amount:    amount,
				Distance:  cand.distance,
			})
			imp.remaining -= amount
			cand.exporter.remaining -= amount
		}
	}

	return flows
}
