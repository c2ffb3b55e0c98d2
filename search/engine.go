// Package search chooses 2048 moves with a depth-limited expectimax search.
//
// Player plies take the best of the four slides; chance plies average over
// 2 (90%) and 4 (10%) spawns on the first few empty cells. Leaves are scored
// by a fixed-weight Heuristic, and chance-node results are cached in a
// MemoTable owned by the Engine.
package search

import (
	"log/slog"
	"math"
	"time"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/rules"
)

// Spawn probabilities at chance nodes.
const (
	spawnTwoProb  = 0.9
	spawnFourProb = 0.1
)

// DefaultMaxChanceCells caps how many empty cells a chance node expands.
const DefaultMaxChanceCells = 6

var negInf = math.Inf(-1)

type turn int

const (
	playerTurn turn = iota
	computerTurn
)

// Config holds engine configuration.
type Config struct {
	// Depth forces the search depth. 0 selects it from the empty-cell count.
	Depth int
	// MemoLimit is the memo table ceiling (0 = DefaultMemoLimit).
	MemoLimit int
	// MaxChanceCells caps the cells expanded at chance nodes (0 = DefaultMaxChanceCells).
	MaxChanceCells int
	// Evaluator selects the leaf weights: "snake" (default) or "corner".
	Evaluator string
	Logger    *slog.Logger
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		MemoLimit:      DefaultMemoLimit,
		MaxChanceCells: DefaultMaxChanceCells,
		Evaluator:      EvaluatorSnake,
	}
}

// Engine holds the search context. It is not safe for concurrent use; give
// each goroutine its own Engine or serialize calls.
type Engine struct {
	config    Config
	heuristic Heuristic
	memo      *MemoTable
	logger    *slog.Logger

	nodes int
}

// New builds an engine with an empty memo table.
func New(config Config) (*Engine, error) {
	weights, err := WeightsFor(config.Evaluator)
	if err != nil {
		return nil, err
	}
	if config.MaxChanceCells <= 0 {
		config.MaxChanceCells = DefaultMaxChanceCells
	}
	if config.MemoLimit <= 0 {
		config.MemoLimit = DefaultMemoLimit
	}
	if config.Evaluator == "" {
		config.Evaluator = EvaluatorSnake
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config:    config,
		heuristic: Heuristic{Weights: weights},
		memo:      NewMemoTable(config.MemoLimit),
		logger:    logger,
	}, nil
}

// Memo exposes the engine's memo table.
func (e *Engine) Memo() *MemoTable { return e.memo }

// Heuristic returns the leaf evaluator in use.
func (e *Engine) Heuristic() Heuristic { return e.heuristic }

// Config returns the engine configuration with defaults filled in.
func (e *Engine) Config() Config { return e.config }

// DepthFor maps the empty-cell count to a search depth. Fuller boards have
// narrower chance nodes, so they are searched deeper.
func DepthFor(empty int) int {
	switch {
	case empty <= 4:
		return 6
	case empty <= 8:
		return 5
	default:
		return 4
	}
}

// Analysis is the outcome of one top-level search.
type Analysis struct {
	Move    game.Direction
	HasMove bool

	// Scores and Legal are indexed by direction. Illegal moves score -Inf.
	Scores [4]float64
	Legal  [4]bool

	Depth       int
	Empty       int
	Nodes       int
	MemoHits    uint64
	MemoSize    int
	MemoCleared bool
	Elapsed     time.Duration
}

// BestMove returns the highest scoring direction, or false if no direction
// changes the board.
func (e *Engine) BestMove(b game.Board) (game.Direction, bool) {
	a := e.Analyze(b)
	return a.Move, a.HasMove
}

// Analyze runs the search from b and reports every root score.
//
// HasMove is false only when no direction changes b. If every legal direction
// scores -Inf (each leads to a position the player cannot survive at the
// searched depth), the first legal direction in Up, Down, Left, Right order is
// still returned; a strict max over -Inf scores would report no move instead.
func (e *Engine) Analyze(b game.Board) Analysis {
	start := time.Now()
	var a Analysis

	if before := e.memo.Len(); e.memo.MaybeClear() {
		a.MemoCleared = true
		e.logger.Debug("memo table cleared", "entries", before, "limit", e.memo.Limit())
	}

	a.Empty = b.EmptyCount()
	a.Depth = e.config.Depth
	if a.Depth <= 0 {
		a.Depth = DepthFor(a.Empty)
	}

	e.nodes = 0
	hitsBefore := e.memo.hits

	best := negInf
	for _, d := range game.Directions {
		a.Scores[d] = negInf
		next := rules.Simulate(b, d)
		if next == b {
			continue
		}
		a.Legal[d] = true

		// The real move is already applied; the ply is charged to the chance node.
		score := e.expectimax(next, a.Depth, computerTurn)
		a.Scores[d] = score

		// Strict improvement keeps the first seen on ties. The first legal
		// move is taken even if it scores -Inf so a legal board never yields
		// no move.
		if !a.HasMove || score > best {
			best = score
			a.Move = d
			a.HasMove = true
		}
	}

	a.Nodes = e.nodes
	a.MemoHits = e.memo.hits - hitsBefore
	a.MemoSize = e.memo.Len()
	a.Elapsed = time.Since(start)
	return a
}

func (e *Engine) expectimax(b game.Board, depth int, t turn) float64 {
	e.nodes++
	if depth == 0 {
		return e.heuristic.Score(b)
	}

	if score, ok := e.memo.Get(b, depth); ok {
		return score
	}

	if t == playerTurn {
		best := negInf
		for _, d := range game.Directions {
			next := rules.Simulate(b, d)
			if next == b {
				continue
			}
			if score := e.expectimax(next, depth-1, computerTurn); score > best {
				best = score
			}
		}
		// Stuck player: -Inf, the worst possible outcome.
		return best
	}

	cells := b.EmptyCells()
	// Only the first cells in row-major order are expanded.
	if len(cells) > e.config.MaxChanceCells {
		cells = cells[:e.config.MaxChanceCells]
	}
	if len(cells) == 0 {
		return e.heuristic.Score(b)
	}

	total := 0.0
	for _, c := range cells {
		total += spawnTwoProb * e.expectimax(b.With(c.Row, c.Col, 2), depth-1, playerTurn)
		total += spawnFourProb * e.expectimax(b.With(c.Row, c.Col, 4), depth-1, playerTurn)
	}

	// The cache holds the undivided total.
	e.memo.Put(b, depth, total)
	return total / float64(len(cells))
}
