package trade

import (
	"github.com/talgya/burgecon/internal/economy"
)

// Position is a settlement's trade outcome for one commodity, recomputed
// from the flow list.
type Position struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Commodity economy.Commodity `json:"commodity"`
	Net       float64           `json:"net"`      // Declared balance
	Exported  float64           `json:"exported"` // Total shipped out
	Imported  float64           `json:"imported"` // Total received
	Unsold    float64           `json:"unsold"`   // Surplus nobody bought
	Unmet     float64           `json:"unmet"`    // Deficit nobody covered
}

// Summary aggregates a routing run.
type Summary struct {
	Volumes   map[economy.Commodity]float64 `json:"volumes"`
	Unmet     map[economy.Commodity]float64 `json:"unmet"`
	Positions []Position                    `json:"positions"`
}

// Summarize recomputes per-settlement totals from flows and compares them to
// declared balances. Only trading settlements (outside the noise band) get
// a position; positions follow settlement order, then commodity order.
func Summarize(settlements []economy.Settlement, flows []Flow) Summary {
	type key struct {
		id int
		c  economy.Commodity
	}
	out := make(map[key]float64)
	in := make(map[key]float64)

	sum := Summary{
		Volumes: make(map[economy.Commodity]float64, len(economy.Commodities)),
		Unmet:   make(map[economy.Commodity]float64, len(economy.Commodities)),
	}
	for _, f := range flows {
		out[key{f.From, f.Commodity}] += f.Amount
		in[key{f.To, f.Commodity}] += f.Amount
		sum.Volumes[f.Commodity] += f.Amount
	}

	for _, s := range settlements {
		for _, c := range economy.Commodities {
			net := s.Net.Of(c)
			if net <= NoiseThreshold && net >= -NoiseThreshold {
				continue
			}
			k := key{s.ID, c}
			p := Position{
				ID:        s.ID,
				Name:      s.Name,
				Commodity: c,
				Net:       net,
				Exported:  out[k],
				Imported:  in[k],
			}
			if net > 0 {
				p.Unsold = max(0, net-p.Exported)
			} else {
				p.Unmet = max(0, -net-p.Imported)
				sum.Unmet[c] += p.Unmet
			}
			sum.Positions = append(sum.Positions, p)
		}
	}

	return sum
}

// For returns the positions of one settlement.
func (s Summary) For(id int) []Position {
	var ps []Position
	for _, p := range s.Positions {
		if p.ID == id {
			ps = append(ps, p)
		}
	}
	return ps
}
