package economy

import (
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/talgya/burgecon/internal/config"
	"github.com/talgya/burgecon/internal/world"
)

// Skipped records a settlement excluded from the enriched output.
type Skipped struct {
	Index int    `json:"index"` // Position in the input list
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Err   error  `json:"-"`
}

// Result is the output of one processing run.
type Result struct {
	Settlements []Settlement
	Skipped     []Skipped
}

// Totals sums the net balances of all enriched settlements.
func (r Result) Totals() Balance {
	return Balance{
		Food: lo.SumBy(r.Settlements, func(s Settlement) float64 { return s.Net.Food }),
		Gold: lo.SumBy(r.Settlements, func(s Settlement) float64 { return s.Net.Gold }),
	}
}

// Population sums the population of all enriched settlements.
func (r Result) Population() int {
	return lo.SumBy(r.Settlements, func(s Settlement) int { return s.Population })
}

// Processor applies the economic model to every settlement of a world.
type Processor struct {
	store *config.Store
	log   *slog.Logger
}

// NewProcessor validates store and returns a processor bound to it.
// A nil logger uses slog.Default().
func NewProcessor(store *config.Store, logger *slog.Logger) (*Processor, error) {
	if err := store.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{store: store, log: logger}, nil
}

// Process enriches settlements in input order. Settlements without a name or
// a usable population are skipped with a warning; configuration errors abort
// the run with no partial result.
func (p *Processor) Process(settlements []world.Settlement) (Result, error) {
	res := Result{Settlements: make([]Settlement, 0, len(settlements))}

	for i, s := range settlements {
		var (
			enriched Settlement
			err      error
		)
		if s.Name == "" {
			err = &InputError{ID: s.ID, Field: "name", Reason: "missing"}
		} else {
			enriched, err = Derive(s, p.store)
		}

		switch {
		case err == nil:
			res.Settlements = append(res.Settlements, enriched)
		case IsInputError(err):
			p.log.Warn("skipping settlement", "index", i, "id", s.ID, "name", s.Name, "error", err)
			res.Skipped = append(res.Skipped, Skipped{Index: i, ID: s.ID, Name: s.Name, Err: err})
		default:
			return Result{}, fmt.Errorf("settlement %d: %w", s.ID, err)
		}
	}

	totals := res.Totals()
	p.log.Info("settlements processed",
		"enriched", len(res.Settlements),
		"skipped", len(res.Skipped),
		"population", res.Population(),
		"net_food", totals.Food,
		"net_gold", totals.Gold,
	)
	return res, nil
}
