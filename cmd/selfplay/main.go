// Command selfplay plays 2048 games with the search engine on many workers
// and writes every decision to Parquet batches.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/twenty48/config"
	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/selfplay"
	"github.com/brensch/twenty48/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	outDir := fs.String("out-dir", config.GetEnvOrDefault("OUT_DIR", "data/selfplay"), "Output directory for decision parquet batches")
	workers := fs.Int("workers", config.GetEnvIntOrDefault("WORKERS", runtime.NumCPU()), "Number of self-play workers")
	gamesPerFlush := fs.Int("games-per-flush", config.GetEnvIntOrDefault("GAMES_PER_FLUSH", 50), "Games per parquet batch")
	maxGames := fs.Int64("max-games", int64(config.GetEnvIntOrDefault("MAX_GAMES", 0)), "If > 0, stop after this many games across all workers")
	maxMoves := fs.Int("max-moves", config.GetEnvIntOrDefault("MAX_MOVES", 0), "If > 0, cut each game off after this many moves")
	seed := fs.Int64("seed", int64(config.GetEnvIntOrDefault("SEED", 0)), "RNG seed (0 = from clock)")
	fourChance := fs.Float64("four-chance", game.DefaultSpawnSettings.FourChance, "Probability that a spawned tile is a 4")
	useTUI := fs.Bool("tui", config.GetEnvBoolOrDefault("TUI", true), "Show the terminal dashboard instead of periodic log lines")
	statsEvery := fs.Duration("stats-every", config.GetEnvDurationOrDefault("STATS_EVERY", 10*time.Second), "Progress log interval without the dashboard")
	engineFlags := config.RegisterEngine(fs)
	logFlags := config.RegisterLogging(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	// The dashboard owns the terminal, so logs are dropped while it runs.
	logOut := io.Writer(os.Stderr)
	if *useTUI {
		logOut = io.Discard
	}
	logger, err := logFlags.Logger(logOut)
	if err != nil {
		slog.Error("logging setup", "error", err)
		os.Exit(2)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	cfg := selfplay.RunConfig{
		Workers:  *workers,
		MaxGames: *maxGames,
		Seed:     *seed,
		Engine:   engineFlags.Config(logger),
		Game: selfplay.Options{
			MaxMoves: *maxMoves,
			Spawn:    game.SpawnSettings{FourChance: *fourChance},
		},
		Logger: logger,
	}

	rowsCh := make(chan []store.DecisionRow, (*workers)*2)
	updates := make(chan selfplay.Update, *workers)
	var counters selfplay.Counters

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		games, err := selfplay.WriteLoop(*outDir, *gamesPerFlush, rowsCh, logger)
		if err != nil {
			logger.Error("writer finished with errors", "games", games, "error", err)
			return
		}
		logger.Info("writer finished", "games", games)
	}()

	logger.Info("starting self-play",
		"workers", *workers,
		"out_dir", *outDir,
		"evaluator", engineFlags.Evaluator,
		"depth", engineFlags.Depth,
		"max_games", *maxGames,
	)

	runDone := make(chan error, 1)
	go func() {
		err := selfplay.Run(ctx, cfg, &counters, rowsCh, updates)
		close(rowsCh)
		close(updates)
		runDone <- err
	}()

	var runErr error
	if *useTUI {
		runErr = runDashboard(ctx, cancel, &counters, updates, *workers, runDone)
	} else {
		runErr = logProgress(ctx, logger, &counters, updates, *statsEvery, runDone)
	}
	<-writerDone

	if runErr != nil {
		logger.Error("self-play failed", "error", runErr)
		os.Exit(1)
	}
	logger.Info("self-play complete", "games", counters.Games.Load(), "moves", counters.Moves.Load())
}

// runDashboard drives the bubbletea model until the user quits or the run ends.
func runDashboard(ctx context.Context, cancel context.CancelFunc, counters *selfplay.Counters, updates <-chan selfplay.Update, workers int, runDone <-chan error) error {
	p := tea.NewProgram(initialModel(counters, updates, workers), tea.WithContext(ctx))

	result := make(chan error, 1)
	go func() {
		err := <-runDone
		result <- err
		p.Send(runDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-result
		return err
	}
	// Quitting the dashboard stops the workers; they finish their current
	// game before Run returns.
	cancel()
	return <-result
}

func logProgress(ctx context.Context, logger *slog.Logger, counters *selfplay.Counters, updates <-chan selfplay.Update, every time.Duration, runDone <-chan error) error {
	if every <= 0 {
		every = 10 * time.Second
	}
	start := time.Now()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case err := <-runDone:
			return err
		case <-ctx.Done():
			logger.Info("shutdown requested; waiting for workers to finish current games")
			return <-runDone
		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			logger.Info("game finished",
				"worker", u.WorkerID,
				"moves", u.Result.Moves,
				"score", u.Result.Score,
				"max_tile", u.Result.MaxTile,
				"rows", u.Rows,
			)
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			logger.Info("progress",
				"games", counters.Games.Load(),
				"moves", counters.Moves.Load(),
				"moves_per_sec", float64(counters.Moves.Load())/elapsed,
			)
		}
	}
}
