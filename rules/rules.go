// Package rules implements 2048 slide-and-merge physics.
//
// Every direction is reduced to a single rule, MergeLeft, by orienting the
// board before and after it (reverse for right, transpose for up, both for
// down). Nothing here mutates its input.
package rules

import (
	"github.com/brensch/twenty48/game"
)

// MergeLeft slides one row to the left, merging equal neighbours once.
// It returns the new row and the points scored (sum of merged tiles).
//
//	[2,2,0,4] -> [4,4,0,0]
//	[2,2,2,2] -> [4,4,0,0]
func MergeLeft(row [game.Size]int) ([game.Size]int, int) {
	// Compress
	var tiles [game.Size]int
	n := 0
	for _, v := range row {
		if v != 0 {
			tiles[n] = v
			n++
		}
	}

	// Merge; a merged tile leaves a 0 behind so it cannot merge again.
	points := 0
	for i := 0; i < n-1; i++ {
		if tiles[i] != 0 && tiles[i] == tiles[i+1] {
			tiles[i] *= 2
			tiles[i+1] = 0
			points += tiles[i]
		}
	}

	// Compress again and pad with zeros.
	var out [game.Size]int
	w := 0
	for i := 0; i < n; i++ {
		if tiles[i] != 0 {
			out[w] = tiles[i]
			w++
		}
	}
	return out, points
}

func mergeRows(b game.Board) (game.Board, int) {
	var out game.Board
	points := 0
	for r := 0; r < game.Size; r++ {
		row, p := MergeLeft(b[r])
		out[r] = row
		points += p
	}
	return out, points
}

// Slide applies dir to b and returns the resulting board and merge points.
// No tile is spawned. An unknown direction returns b unchanged.
func Slide(b game.Board, dir game.Direction) (game.Board, int) {
	switch dir {
	case game.Left:
		return mergeRows(b)
	case game.Right:
		out, p := mergeRows(b.Reverse())
		return out.Reverse(), p
	case game.Up:
		out, p := mergeRows(b.Transpose())
		return out.Transpose(), p
	case game.Down:
		out, p := mergeRows(b.Transpose().Reverse())
		return out.Reverse().Transpose(), p
	default:
		return b, 0
	}
}

// Simulate returns the board after sliding in dir. The result equals b when
// the move has no effect, which is how callers detect dead moves.
func Simulate(b game.Board, dir game.Direction) game.Board {
	out, _ := Slide(b, dir)
	return out
}

// GetLegalMoves returns the directions that change the board, in search order.
func GetLegalMoves(b game.Board) []game.Direction {
	moves := make([]game.Direction, 0, len(game.Directions))
	for _, d := range game.Directions {
		if Simulate(b, d) != b {
			moves = append(moves, d)
		}
	}
	return moves
}

// IsGameOver reports whether no direction changes the board.
func IsGameOver(b game.Board) bool {
	if b.EmptyCount() > 0 {
		return false
	}
	for _, d := range game.Directions {
		if Simulate(b, d) != b {
			return false
		}
	}
	return true
}
