package selfplay

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
	"github.com/brensch/twenty48/store"
)

// Update reports one finished game to a progress display.
type Update struct {
	WorkerID int
	Result   GameResult
	Rows     int
}

type RunConfig struct {
	Workers int
	// MaxGames stops the run after this many games across all workers (0 = until cancelled).
	MaxGames int64
	// Seed fixes every worker's RNG. 0 seeds from the clock.
	Seed   int64
	Engine search.Config
	Game   Options
	Logger *slog.Logger
}

// Counters are shared progress totals, safe to read while a run is active.
type Counters struct {
	Moves atomic.Int64
	Games atomic.Int64

	started atomic.Int64
}

// Run plays games on cfg.Workers goroutines, each with its own engine and
// RNG, until ctx is cancelled or MaxGames have been played. Completed games
// are sent to rowsOut, which the caller must keep draining; updates is optional and never blocks a worker.
func Run(ctx context.Context, cfg RunConfig, counters *Counters, rowsOut chan<- []store.DecisionRow, updates chan<- Update) error {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if counters == nil {
		counters = &Counters{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		workerID := i
		g.Go(func() error {
			engineCfg := cfg.Engine
			engineCfg.Logger = logger.With("worker", workerID)
			engine, err := search.New(engineCfg)
			if err != nil {
				return fmt.Errorf("worker %d: %w", workerID, err)
			}
			rng := rand.New(rand.NewSource(baseSeed + int64(workerID)*1000003))

			opts := cfg.Game
			userStep := opts.OnStep
			opts.OnStep = func(b game.Board, a search.Analysis) {
				counters.Moves.Add(1)
				if userStep != nil {
					userStep(b, a)
				}
			}

			for played := 0; ; played++ {
				if ctx.Err() != nil {
					return nil
				}
				if n := counters.started.Add(1); cfg.MaxGames > 0 && n > cfg.MaxGames {
					return nil
				}

				gameID := fmt.Sprintf("selfplay_%d_%d_%d", time.Now().UnixNano(), workerID, played)
				rows, result := PlayGame(ctx, gameID, engine, rng, opts)
				if result.Aborted {
					logger.Debug("game aborted", "worker", workerID, "game_id", gameID, "moves", result.Moves)
					return nil
				}
				counters.Games.Add(1)
				logger.Debug("game finished",
					"worker", workerID,
					"game_id", gameID,
					"moves", result.Moves,
					"score", result.Score,
					"max_tile", result.MaxTile,
				)

				rowsOut <- rows
				if updates != nil {
					select {
					case updates <- Update{WorkerID: workerID, Result: result, Rows: len(rows)}:
					default:
					}
				}
			}
		})
	}
	return g.Wait()
}
