package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"onitama-arena/server/agent"
	"onitama-arena/server/engine"
	"onitama-arena/server/judge"
	"onitama-arena/server/pgn"
	"onitama-arena/server/store"
	"onitama-arena/server/tournament"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var stopFlag atomic.Bool

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		log.Printf("%s %v", bad("fatal:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, envErr := loadConfig()
	cmd := &cobra.Command{
		Use:           "onitama-arena --engine CMD --engine CMD",
		Short:         "Play two Onitama engines against each other",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			useColor = cfg.colorEnabled()
			if cfg.Migrate {
				return migrate(cmd.Context(), cfg)
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	bindFlags(cmd, &cfg)
	return cmd
}

func migrate(ctx context.Context, cfg Config) error {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Println("migrated")
	return nil
}

// openStore returns nil when no store is configured or it cannot be used;
// the tournament then runs without one.
func openStore(ctx context.Context, cfg Config) store.Store {
	if cfg.DatabaseURL == "" {
		return nil
	}
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("DB disabled (open failed): %v", err)
		return nil
	}
	// a fresh SQLite file is useless without its tables
	if cfg.AutoMigrate || !store.IsPostgres(cfg.DatabaseURL) {
		if err := db.Migrate(ctx); err != nil {
			log.Printf("migrate failed (continuing without DB): %v", err)
			db.Close()
			return nil
		}
	}
	return db
}

func engineSpawner(debug bool) tournament.Spawner {
	return func(_ context.Context, cmd engine.Command) (agent.Contestant, error) {
		h, err := engine.Start(cmd, engine.WithDebug(debug))
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	tcfg, err := cfg.tournament()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchSignals(ctx, cancel, cfg.StopImmediate)

	var deadline time.Time
	if cfg.MaxSeconds > 0 {
		deadline = time.Now().Add(time.Duration(cfg.MaxSeconds) * time.Second)
	}
	checkStop := func() bool {
		if stopFlag.Load() {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			stopFlag.Store(true)
			return true
		}
		if cfg.StopFile != "" {
			if _, err := os.Stat(cfg.StopFile); err == nil {
				stopFlag.Store(true)
				return true
			}
		}
		return false
	}

	opts := []tournament.Option{
		tournament.WithObserver(&console{w: out, debug: cfg.Debug}),
		tournament.WithStopCheck(checkStop),
	}
	if cfg.PGNOut != "" {
		opts = append(opts, tournament.WithRecorder(pgn.NewWriter(cfg.PGNOut)))
	}
	runner, err := tournament.New(tcfg, engineSpawner(cfg.Debug), opts...)
	if err != nil {
		return err
	}

	db := openStore(ctx, cfg)
	if db != nil {
		defer db.Close()
		rec, err := newStoreRecorder(ctx, db, runner.Standings())
		if err != nil {
			log.Printf("DB disabled (engine registration failed): %v", err)
		} else {
			runner.AddRecorder(rec)
		}
	}

	if cfg.HTTPAddr != "" {
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: Router(runner.Standings(), db), ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
		go func() {
			log.Printf("status API on http://%s/api/standings", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	section(out, "Tournament")
	fmt.Fprintf(out, "%s %s - %s  tc=%ss  concurrency=%d  seed=%d\n",
		dim("config"), tcfg.Engines[0].Line, tcfg.Engines[1].Line, points(cfg.TimeControl), tcfg.Concurrency, runner.Seed())

	err = runner.Run(ctx)
	summary(out, runner.Standings().Snapshot())
	if err != nil {
		var ce *judge.ConsistencyError
		if errors.As(err, &ce) {
			log.Printf("%s %s and %s disagree about the end of the game", bad("consistency failure:"), ce.Declarer, ce.Confirmer)
		}
		return err
	}
	if stopFlag.Load() {
		log.Printf("%s", warn("stopped"))
	}
	return nil
}

// watchSignals turns the first interrupt into a graceful stop (or an abort
// when immediate is set); a second interrupt always aborts.
func watchSignals(ctx context.Context, cancel context.CancelFunc, immediate bool) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
	case <-ctx.Done():
		return
	}
	stopFlag.Store(true)
	if immediate {
		log.Printf("%s aborting games in flight", warn("stop requested:"))
		cancel()
		return
	}
	log.Printf("%s finishing games in flight (interrupt again to abort)", warn("stop requested:"))
	select {
	case <-c:
		log.Printf("%s aborting games in flight", warn("second interrupt:"))
		cancel()
	case <-ctx.Done():
	}
}
