package main

import (
	"errors"
	"fmt"
	"time"

	"onitama-arena/server/engine"
	"onitama-arena/server/tournament"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// Config is the arbiter's run configuration. Environment (and .env) supplies
// the defaults; command-line flags override them.
type Config struct {
	Engines       []string
	PGNOut        string  `env:"ARENA_PGN_OUT"`
	TimeControl   float64 `env:"ARENA_TC" envDefault:"1.0"`
	Concurrency   int     `env:"ARENA_CONCURRENCY" envDefault:"1"`
	Games         int     `env:"ARENA_GAMES"`
	MaxSeconds    int     `env:"MAX_SECONDS"`
	StopFile      string  `env:"STOP_FILE"`
	StopImmediate bool    `env:"STOP_IMMEDIATE"`
	Seed          uint64  `env:"OPENING_SEED"`
	DatabaseURL   string  `env:"DATABASE_URL"`
	AutoMigrate   bool    `env:"AUTO_MIGRATE"`
	HTTPAddr      string  `env:"HTTP_ADDR"`
	EloStart      float64 `env:"ELO_START" envDefault:"1500"`
	EloK          float64 `env:"ELO_K" envDefault:"24"`
	Debug         bool    `env:"DEBUG"`
	NoColor       string  `env:"NO_COLOR"`
	UseColor      string  `env:"USE_COLOR"`
	Migrate       bool
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// bindFlags registers the flags on cmd with the environment values as
// defaults, so an explicit flag wins.
func bindFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	f.StringArrayVar(&cfg.Engines, "engine", nil, "engine command (give exactly twice)")
	f.StringVar(&cfg.PGNOut, "pgn-out", cfg.PGNOut, "append finished games to this PGN file")
	f.Float64Var(&cfg.TimeControl, "tc", cfg.TimeControl, "seconds per move")
	f.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "games played at once")
	f.IntVar(&cfg.Games, "games", cfg.Games, "stop after this many games (0 = until stopped)")
	f.IntVar(&cfg.MaxSeconds, "max-seconds", cfg.MaxSeconds, "stop starting games after this many seconds")
	f.StringVar(&cfg.StopFile, "stop-file", cfg.StopFile, "stop starting games once this file exists")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "opening seed (0 = random)")
	f.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "result store: postgres:// DSN or SQLite file path")
	f.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "serve the status API on this address")
	f.BoolVar(&cfg.Migrate, "migrate", false, "create the result store schema and exit")
}

func (c Config) validate() error {
	if c.Migrate {
		if c.DatabaseURL == "" {
			return errors.New("--migrate needs --db or DATABASE_URL")
		}
		return nil
	}
	if len(c.Engines) != 2 {
		return fmt.Errorf("--engine must be given exactly twice, got %d", len(c.Engines))
	}
	if c.TimeControl <= 0 {
		return fmt.Errorf("--tc must be positive, got %v", c.TimeControl)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Games < 0 {
		return fmt.Errorf("--games must not be negative, got %d", c.Games)
	}
	return nil
}

func (c Config) colorEnabled() bool { return c.NoColor == "" && c.UseColor != "0" }

func (c Config) tcDuration() time.Duration {
	return time.Duration(c.TimeControl * float64(time.Second))
}

// tournament converts the run configuration into the tournament's own.
func (c Config) tournament() (tournament.Config, error) {
	tc := tournament.Config{
		Catalog:     engine.DefaultCatalog(),
		TimeControl: c.tcDuration(),
		Concurrency: c.Concurrency,
		MaxGames:    c.Games,
		Seed:        c.Seed,
		EloStart:    c.EloStart,
		EloK:        c.EloK,
	}
	for i, line := range c.Engines {
		cmd, err := engine.ParseCommand(line)
		if err != nil {
			return tc, fmt.Errorf("engine %d: %w", i+1, err)
		}
		tc.Engines[i] = cmd
	}
	return tc, nil
}
