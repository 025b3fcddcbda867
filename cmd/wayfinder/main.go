package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/wayfinder/internal/ai"
	"github.com/udisondev/wayfinder/internal/config"
	"github.com/udisondev/wayfinder/internal/db"
	"github.com/udisondev/wayfinder/internal/debugview"
	"github.com/udisondev/wayfinder/internal/sim"
	"github.com/udisondev/wayfinder/internal/trace"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config FIRST to determine log level
	cfgPath := config.PathFromEnv()
	cfg, err := config.LoadWayfinder(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Per-tick agent logs only at debug level
	ai.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("wayfinder starting",
		"config", cfgPath,
		"log_level", cfg.LogLevel,
		"strategy", cfg.Strategy,
		"agents", len(cfg.Agents))

	// Transition recorders are attached before agents start so the first
	// state entry is journaled too.
	recorders := &recorderList{}
	opts := []ai.Option{ai.WithRecorder(recorders)}

	var hub *debugview.Hub
	if cfg.Debug.Enabled {
		hub = debugview.NewHub()
		opts = append(opts, ai.WithSearchObserver(hub))
	}

	world, err := sim.NewWorld(cfg, opts...)
	if err != nil {
		return fmt.Errorf("building world: %w", err)
	}
	grid := world.Grid()

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		version, err := db.RunMigrations(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied", "schema_version", version)

		repo := db.NewJournalRepository(database.Pool())
		runRow, err := repo.CreateRun(ctx, grid.Digest(), grid.Cols(), grid.Rows(), cfg.Strategy)
		if err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		slog.Info("run journal opened", "run", runRow.RunID, "grid_digest", runRow.GridDigest)

		journal := db.NewJournal(runRow.RunID, repo, 0)
		recorders.add(journal)
		g.Go(func() error {
			if err := journal.Run(gctx); err != nil {
				return fmt.Errorf("journal: %w", err)
			}
			return nil
		})
	}

	mgr := ai.NewTickManager(cfg.TickInterval)

	if cfg.Trace.Enabled {
		tl := trace.NewTickLogger(cfg.Trace.Dir)
		defer func() {
			if err := tl.Close(); err != nil {
				slog.Error("closing trace", "error", err)
			}
		}()
		bodies := world.Bodies()
		mgr.AfterTick(func(tick uint64) {
			for _, b := range bodies {
				if err := tl.WriteTick(trace.EntryFor(tick, b.Agent())); err != nil {
					slog.Error("writing trace", "agent", b.Agent().Name(), "error", err)
					return
				}
			}
		})
		slog.Info("tick trace enabled", "dir", cfg.Trace.Dir)
	}

	if hub != nil {
		for _, b := range world.Bodies() {
			hub.WatchVitality(b.Agent().Name(), b.Agent().Vitality())
		}
		mgr.AfterTick(hub.PublishTick)
		g.Go(func() error {
			if err := hub.ListenAndServe(gctx, cfg.Debug.Addr); err != nil {
				return fmt.Errorf("debug export: %w", err)
			}
			return nil
		})
	}

	mgr.AfterTick(func(tick uint64) {
		if cfg.MaxTicks > 0 && tick >= cfg.MaxTicks {
			slog.Info("tick limit reached", "ticks", tick)
			mgr.Stop()
			return
		}
		if world.Settled() {
			slog.Info("all agents settled", "ticks", tick)
			mgr.Stop()
		}
	})

	world.Register(mgr)

	g.Go(func() error {
		defer stopRun()
		slog.Info("starting AI tick manager", "interval", mgr.Interval())
		if err := mgr.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("AI tick manager: %w", err)
		}
		return nil
	})

	// Wait for the tick loop and every sink to finish
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run error: %w", err)
	}

	if hub != nil {
		hub.Close()
	}
	for _, b := range world.Bodies() {
		a := b.Agent()
		slog.Info("agent final state",
			"agent", a.Name(),
			"state", a.State(),
			"vitality", a.Vitality().Current(),
			"ticks", a.Ticks())
	}

	return nil
}

// recorderList fans transitions out to every attached recorder.
type recorderList struct {
	recorders []ai.TransitionRecorder
}

func (l *recorderList) add(r ai.TransitionRecorder) {
	l.recorders = append(l.recorders, r)
}

func (l *recorderList) RecordTransition(tr ai.Transition) {
	for _, r := range l.recorders {
		r.RecordTransition(tr)
	}
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
