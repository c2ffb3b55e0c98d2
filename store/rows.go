package store

import (
	"fmt"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
)

// SchemaDecisionV1 is written into every file's key/value metadata.
const SchemaDecisionV1 = "decision_row_v1"

// DecisionRow is one engine decision: the board it saw and what it chose.
//
// Cells holds the 16 tiles row-major (0 = empty). Move is "up", "down",
// "left", "right" or "" when no direction was legal. Scores and Legal are
// indexed in the same order; illegal directions score -Inf.
type DecisionRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`

	Cells   []int32 `parquet:"cells"`
	Empty   int32   `parquet:"empty"`
	MaxTile int32   `parquet:"max_tile"`
	// Score is the game score accumulated before this move.
	Score int64 `parquet:"score"`

	Move   string    `parquet:"move,dict"`
	Scores []float64 `parquet:"scores"`
	Legal  []bool    `parquet:"legal"`

	Depth         int32 `parquet:"depth"`
	Nodes         int64 `parquet:"nodes"`
	MemoHits      int64 `parquet:"memo_hits"`
	MemoSize      int32 `parquet:"memo_size"`
	MemoCleared   bool  `parquet:"memo_cleared"`
	ElapsedMicros int64 `parquet:"elapsed_us"`

	Evaluator string `parquet:"evaluator,dict"`
	Source    string `parquet:"source,dict"`
}

// NewDecisionRow flattens an analysis of b into a row.
func NewDecisionRow(gameID string, turn int, b game.Board, score int, a search.Analysis, evaluator, source string) DecisionRow {
	row := DecisionRow{
		GameID:        gameID,
		Turn:          int32(turn),
		Cells:         b.Cells(),
		Empty:         int32(a.Empty),
		MaxTile:       int32(b.MaxTile()),
		Score:         int64(score),
		Scores:        a.Scores[:],
		Legal:         a.Legal[:],
		Depth:         int32(a.Depth),
		Nodes:         int64(a.Nodes),
		MemoHits:      int64(a.MemoHits),
		MemoSize:      int32(a.MemoSize),
		MemoCleared:   a.MemoCleared,
		ElapsedMicros: a.Elapsed.Microseconds(),
		Evaluator:     evaluator,
		Source:        source,
	}
	if a.HasMove {
		row.Move = a.Move.String()
	}
	return row
}

// Board rebuilds the board the decision was made on.
func (r DecisionRow) Board() (game.Board, error) {
	cells := make([]int, len(r.Cells))
	for i, v := range r.Cells {
		cells[i] = int(v)
	}
	b, err := game.FromCells(cells)
	if err != nil {
		return game.Board{}, fmt.Errorf("game %s turn %d: %w", r.GameID, r.Turn, err)
	}
	return b, nil
}

// Direction parses Move. ok is false for rows where no move was legal.
func (r DecisionRow) Direction() (dir game.Direction, ok bool, err error) {
	if r.Move == "" {
		return 0, false, nil
	}
	dir, err = game.ParseDirection(r.Move)
	if err != nil {
		return 0, false, err
	}
	return dir, true, nil
}
