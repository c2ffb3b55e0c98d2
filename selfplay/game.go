// Package selfplay plays complete 2048 games with the search engine and
// records every decision for later analysis.
package selfplay

import (
	"context"
	"math/rand"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/rules"
	"github.com/brensch/twenty48/search"
	"github.com/brensch/twenty48/store"
)

// DefaultSource tags rows produced by self-play.
const DefaultSource = "selfplay"

type GameResult struct {
	GameID  string
	Moves   int
	Score   int
	MaxTile int
	Final   game.Board
	// Truncated is set when MaxMoves stopped the game before it was over.
	Truncated bool
	// Aborted is set when the context was cancelled mid-game.
	Aborted bool
}

type Options struct {
	// MaxMoves stops a game after this many moves (0 = play until stuck).
	MaxMoves int
	Spawn    game.SpawnSettings
	Source   string
	// OnStep is called after every move with the board the engine saw.
	OnStep func(b game.Board, a search.Analysis)
}

// PlayGame runs one game from a fresh two-tile board. Each turn the engine
// picks a move, the move is applied and a random tile spawns. The returned
// rows hold one decision per move plus a final row for the terminal board
// when the game ends with no legal move. Aborted games return nil rows.
func PlayGame(ctx context.Context, gameID string, engine *search.Engine, rng *rand.Rand, opts Options) ([]store.DecisionRow, GameResult) {
	spawn := opts.Spawn
	if spawn == (game.SpawnSettings{}) {
		spawn = game.DefaultSpawnSettings
	}
	source := opts.Source
	if source == "" {
		source = DefaultSource
	}
	evaluator := engine.Config().Evaluator

	b := game.NewGame(rng, spawn)
	score := 0
	rows := make([]store.DecisionRow, 0, 256)
	result := GameResult{GameID: gameID}

	for turn := 0; ; turn++ {
		if ctx != nil && ctx.Err() != nil {
			result.Aborted = true
			break
		}
		if opts.MaxMoves > 0 && turn >= opts.MaxMoves {
			result.Truncated = true
			break
		}

		a := engine.Analyze(b)
		rows = append(rows, store.NewDecisionRow(gameID, turn, b, score, a, evaluator, source))
		if !a.HasMove {
			break
		}

		next, points := rules.Slide(b, a.Move)
		score += points
		result.Moves++
		if opts.OnStep != nil {
			opts.OnStep(b, a)
		}
		b, _ = game.SpawnRandomTile(next, rng, spawn)
	}

	result.Score = score
	result.MaxTile = b.MaxTile()
	result.Final = b
	if result.Aborted {
		return nil, result
	}
	return rows, result
}
