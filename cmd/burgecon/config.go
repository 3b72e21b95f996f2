package main

import (
	"flag"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds command configuration. Environment variables set the
// defaults; flags override them.
type Config struct {
	Input     string `env:"BURGECON_INPUT"`      // Settlements JSON; empty generates a world
	ConfigDir string `env:"BURGECON_CONFIG_DIR"` // YAML tables; empty uses the built-in set
	OutDir    string `env:"BURGECON_OUT_DIR" envDefault:"out"`
	Name      string `env:"BURGECON_NAME"` // Output file prefix
	Compress  bool   `env:"BURGECON_COMPRESS"`
	Seed      int64  `env:"BURGECON_SEED" envDefault:"42"`
	Radius    int    `env:"BURGECON_RADIUS" envDefault:"22"`
	DBPath    string `env:"BURGECON_DB"` // Empty disables run storage
	Serve     bool   `env:"BURGECON_SERVE"`
	Port      int    `env:"BURGECON_PORT" envDefault:"8080"`
	LogLevel  string `env:"BURGECON_LOG_LEVEL" envDefault:"info"`
}

// ParseConfig parses environment then flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Input, "input", cfg.Input, "settlements JSON file (default: generate a world)")
	fs.StringVar(&cfg.ConfigDir, "config", cfg.ConfigDir, "directory with citizens.yaml, economy.yaml and optional tiers.yaml")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "output directory")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "output file prefix (default: input file name, or \"world\")")
	fs.BoolVar(&cfg.Compress, "zstd", cfg.Compress, "zstd-compress output files")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "world generation seed (0 picks a random seed)")
	fs.IntVar(&cfg.Radius, "radius", cfg.Radius, "generated world radius in hexes")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database for run history (default: none)")
	fs.BoolVar(&cfg.Serve, "serve", cfg.Serve, "serve results over HTTP after processing")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port for -serve")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Name == "" {
		cfg.Name = "world"
		if cfg.Input != "" {
			base := filepath.Base(cfg.Input)
			cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	if cfg.Radius <= 0 {
		return Config{}, fmt.Errorf("radius must be positive, got %d", cfg.Radius)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
