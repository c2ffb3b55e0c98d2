package search

import (
	"fmt"

	"github.com/brensch/twenty48/game"
)

// Weights are the coefficients of the leaf evaluation. They are fixed per
// engine; a new set of weights means a new engine with an empty memo table.
type Weights struct {
	Snake      float64
	Empty      float64
	Smoothness float64
	Corner     float64
}

var (
	// DefaultWeights is the snake evaluator.
	DefaultWeights = Weights{Snake: 4, Empty: 50, Smoothness: 1.3}
	// CornerWeights is the snake evaluator plus the corner bonus.
	CornerWeights = Weights{Snake: 4, Empty: 50, Smoothness: 1.3, Corner: 2}
)

// Evaluator names accepted by WeightsFor.
const (
	EvaluatorSnake  = "snake"
	EvaluatorCorner = "corner"
)

// WeightsFor resolves an evaluator name.
func WeightsFor(name string) (Weights, error) {
	switch name {
	case "", EvaluatorSnake:
		return DefaultWeights, nil
	case EvaluatorCorner:
		return CornerWeights, nil
	default:
		return Weights{}, fmt.Errorf("unknown evaluator %q", name)
	}
}

// snakeMatrices are the 8 traversal orders: each corner, horizontal then vertical.
var snakeMatrices = [8][game.Size][game.Size]int{
	// Top left horizontal
	{
		{15, 14, 13, 12},
		{8, 9, 10, 11},
		{7, 6, 5, 4},
		{0, 1, 2, 3},
	},
	// Top right horizontal
	{
		{12, 13, 14, 15},
		{11, 10, 9, 8},
		{4, 5, 6, 7},
		{3, 2, 1, 0},
	},
	// Bottom left horizontal
	{
		{0, 1, 2, 3},
		{7, 6, 5, 4},
		{8, 9, 10, 11},
		{15, 14, 13, 12},
	},
	// Bottom right horizontal
	{
		{3, 2, 1, 0},
		{4, 5, 6, 7},
		{11, 10, 9, 8},
		{12, 13, 14, 15},
	},
	// Top left vertical
	{
		{15, 8, 7, 0},
		{14, 9, 6, 1},
		{13, 10, 5, 2},
		{12, 11, 4, 3},
	},
	// Top right vertical
	{
		{0, 7, 8, 15},
		{1, 6, 9, 14},
		{2, 5, 10, 13},
		{3, 4, 11, 12},
	},
	// Bottom left vertical
	{
		{12, 11, 4, 3},
		{13, 10, 5, 2},
		{14, 9, 6, 1},
		{15, 8, 7, 0},
	},
	// Bottom right vertical
	{
		{3, 4, 11, 12},
		{2, 5, 10, 13},
		{1, 6, 9, 14},
		{0, 7, 8, 15},
	},
}

// cornerMatrix rewards corners and penalises the centre.
var cornerMatrix = [game.Size][game.Size]int{
	{3, 1, 1, 3},
	{1, -1, -1, 1},
	{1, -1, -1, 1},
	{3, 1, 1, 3},
}

// SnakeScore is the best tile-weighted sum over the 8 snake matrices.
func SnakeScore(b game.Board) float64 {
	best := 0
	for i := range snakeMatrices {
		m := &snakeMatrices[i]
		score := 0
		for r := 0; r < game.Size; r++ {
			for c := 0; c < game.Size; c++ {
				if v := b[r][c]; v > 0 {
					score += v * m[r][c]
				}
			}
		}
		if score > best {
			best = score
		}
	}
	return float64(best)
}

// Smoothness is the negated sum of log2 gaps between each tile and its
// right and lower non-empty neighbours.
func Smoothness(b game.Board) float64 {
	penalty := 0
	for r := 0; r < game.Size; r++ {
		for c := 0; c < game.Size; c++ {
			v := b[r][c]
			if v == 0 {
				continue
			}
			lv := game.Log2(v)
			if c < game.Size-1 && b[r][c+1] != 0 {
				penalty += absInt(lv - game.Log2(b[r][c+1]))
			}
			if r < game.Size-1 && b[r+1][c] != 0 {
				penalty += absInt(lv - game.Log2(b[r+1][c]))
			}
		}
	}
	return -float64(penalty)
}

// CornerScore sums log2(tile) * corner weight.
func CornerScore(b game.Board) float64 {
	score := 0
	for r := 0; r < game.Size; r++ {
		for c := 0; c < game.Size; c++ {
			if v := b[r][c]; v > 0 {
				score += game.Log2(v) * cornerMatrix[r][c]
			}
		}
	}
	return float64(score)
}

// Heuristic scores leaf boards with a fixed linear combination of terms.
type Heuristic struct {
	Weights Weights
}

// Score evaluates b. Larger is better.
func (h Heuristic) Score(b game.Board) float64 {
	w := h.Weights
	score := w.Snake*SnakeScore(b) +
		w.Empty*float64(b.EmptyCount()) +
		w.Smoothness*Smoothness(b)
	if w.Corner != 0 {
		score += w.Corner * CornerScore(b)
	}
	return score
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
