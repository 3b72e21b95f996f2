// Command burgecon derives the economy of every settlement on a map and
// routes food and gold between them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/burgecon/internal/api"
	"github.com/talgya/burgecon/internal/config"
	"github.com/talgya/burgecon/internal/economy"
	"github.com/talgya/burgecon/internal/export"
	"github.com/talgya/burgecon/internal/persistence"
	"github.com/talgya/burgecon/internal/trade"
	"github.com/talgya/burgecon/internal/world"
)

func main() {
	cfg, err := ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		slog.Error("burgecon failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	// ── Configuration tables ──────────────────────────────────────────
	var store *config.Store
	var err error
	if cfg.ConfigDir != "" {
		store, err = config.Load(cfg.ConfigDir)
	} else {
		store, err = config.Default()
	}
	if err != nil {
		return err
	}
	slog.Info("configuration loaded",
		"archetypes", len(store.Archetypes),
		"tiers", len(store.Tiers),
		"dir", cfg.ConfigDir,
	)

	// ── Settlements ───────────────────────────────────────────────────
	var settlements []world.Settlement
	meta := persistence.RunMeta{Source: cfg.Input}
	if cfg.Input != "" {
		settlements, err = world.LoadSettlements(cfg.Input)
		if err != nil {
			return err
		}
		slog.Info("settlements loaded", "path", cfg.Input, "count", len(settlements))
	} else {
		gen := world.DefaultGenConfig()
		gen.Seed = resolveSeed(cfg.Seed)
		gen.Radius = cfg.Radius
		worldMap := world.Generate(gen)
		for t, c := range world.TerrainCounts(worldMap) {
			slog.Debug("terrain", "type", world.TerrainName(t), "count", c)
		}
		settlements = world.PlaceSettlements(worldMap, gen)
		meta.Source = "generated"
		meta.Seed = gen.Seed
		slog.Info("world generated", "seed", gen.Seed, "hexes", worldMap.HexCount(), "settlements", len(settlements))
	}

	// ── Economy ───────────────────────────────────────────────────────
	processor, err := economy.NewProcessor(store, slog.Default())
	if err != nil {
		return err
	}
	res, err := processor.Process(settlements)
	if err != nil {
		return err
	}

	// ── Trade ─────────────────────────────────────────────────────────
	flows := trade.Route(res.Settlements)
	summary := trade.Summarize(res.Settlements, flows)
	slog.Info("trade routed",
		"flows", len(flows),
		"food_volume", summary.Volumes[economy.Food],
		"gold_volume", summary.Volumes[economy.Gold],
	)

	// ── Output ────────────────────────────────────────────────────────
	paths := export.PathsFor(cfg.OutDir, cfg.Name, cfg.Compress)
	if err := export.WriteAll(paths, res.Settlements, flows); err != nil {
		return err
	}
	slog.Info("results written", "settlements", paths.Settlements, "trade_routes", paths.Flows)

	var db *persistence.DB
	var runID string
	if cfg.DBPath != "" {
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err = db.SaveRun(meta, res, flows)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	printSummary(stdout, cfg.Name, res, summary, runID)

	// ── HTTP API ──────────────────────────────────────────────────────
	if !cfg.Serve {
		return nil
	}
	fmt.Fprintf(stdout, "API: http://localhost:%d/api/v1/status (Ctrl+C to stop)\n", cfg.Port)
	srv := &api.Server{
		Name:    cfg.Name,
		Result:  res,
		Flows:   flows,
		Summary: summary,
		DB:      db,
		RunID:   runID,
		Port:    cfg.Port,
	}
	return srv.ListenAndServe(ctx)
}

// resolveSeed replaces 0 ("pick one") with a random positive seed, so the
// stored run can always be regenerated.
func resolveSeed(seed int64) int64 {
	for seed == 0 {
		seed = rand.Int63()
	}
	return seed
}

func printSummary(w io.Writer, name string, res economy.Result, sum trade.Summary, runID string) {
	totals := res.Totals()
	fmt.Fprintf(w, "\n%s: %s inhabitants across %d settlements (%d skipped).\n",
		name, humanize.Comma(int64(res.Population())), len(res.Settlements), len(res.Skipped))
	for _, c := range economy.Commodities {
		fmt.Fprintf(w, "  %-4s net %s, traded %s, unmet %s\n",
			c,
			humanize.CommafWithDigits(totals.Of(c), 2),
			humanize.CommafWithDigits(sum.Volumes[c], 2),
			humanize.CommafWithDigits(sum.Unmet[c], 2),
		)
	}
	if runID != "" {
		fmt.Fprintf(w, "Run stored as %s\n", runID)
	}
}
