// Package game defines the core board types for 2048.
//
// A Board is a plain 4x4 array of tile values so it can be copied by
// assignment, compared with == and used directly as a map key. Every
// transformation returns a new Board; nothing here mutates its receiver.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"strconv"
	"strings"
)

// Size is the board edge length.
const Size = 4

// MaxTile is the largest tile value accepted by Validate (2^17).
const MaxTile = 1 << 17

var (
	ErrDimensions = errors.New("board must be 4x4")
	ErrTileValue  = errors.New("tile must be 0 or a power of two")
)

// Board is a 4x4 grid of tile values. 0 is an empty cell.
// Cells are indexed [row][col] with row 0 at the top.
type Board [Size][Size]int

// Cell is a board coordinate.
type Cell struct {
	Row int
	Col int
}

// Direction is a swipe direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in the fixed search order.
var Directions = [4]Direction{Up, Down, Left, Right}

var directionNames = [4]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < Up || d > Right {
		return "Direction(" + strconv.Itoa(int(d)) + ")"
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// ParseDirection accepts "up", "down", "left" or "right" in any case.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range directionNames {
		if s == name {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// FromRows builds a Board from a row-major slice of rows and validates it.
func FromRows(rows [][]int) (Board, error) {
	var b Board
	if len(rows) != Size {
		return b, fmt.Errorf("%w: got %d rows", ErrDimensions, len(rows))
	}
	for r, row := range rows {
		if len(row) != Size {
			return b, fmt.Errorf("%w: row %d has %d cells", ErrDimensions, r, len(row))
		}
		copy(b[r][:], row)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// FromCells builds a Board from 16 values in row-major order.
func FromCells(cells []int) (Board, error) {
	var b Board
	if len(cells) != Size*Size {
		return b, fmt.Errorf("%w: got %d cells", ErrDimensions, len(cells))
	}
	for i, v := range cells {
		b[i/Size][i%Size] = v
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Validate checks that every cell is 0 or a power of two no larger than MaxTile.
func (b Board) Validate() error {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			v := b[r][c]
			if v == 0 {
				continue
			}
			if v < 2 || v > MaxTile || v&(v-1) != 0 {
				return fmt.Errorf("%w: %d at (%d,%d)", ErrTileValue, v, r, c)
			}
		}
	}
	return nil
}

// Rows returns the board as a freshly allocated slice of rows (JSON friendly).
func (b Board) Rows() [][]int {
	rows := make([][]int, Size)
	for r := range rows {
		rows[r] = append([]int(nil), b[r][:]...)
	}
	return rows
}

// Cells returns the board as 16 values in row-major order.
func (b Board) Cells() []int32 {
	out := make([]int32, 0, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out = append(out, int32(b[r][c]))
		}
	}
	return out
}

// With returns a copy of b with (row, col) set to value.
func (b Board) With(row, col, value int) Board {
	b[row][col] = value
	return b
}

// EmptyCells returns the empty cells in row-major scan order.
func (b Board) EmptyCells() []Cell {
	cells := make([]Cell, 0, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == 0 {
				cells = append(cells, Cell{Row: r, Col: c})
			}
		}
	}
	return cells
}

// EmptyCount returns the number of empty cells.
func (b Board) EmptyCount() int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == 0 {
				n++
			}
		}
	}
	return n
}

// MaxTile returns the largest tile on the board.
func (b Board) MaxTile() int {
	m := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] > m {
				m = b[r][c]
			}
		}
	}
	return m
}

// Transpose swaps rows and columns.
func (b Board) Transpose() Board {
	var out Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[c][r] = b[r][c]
		}
	}
	return out
}

// Reverse mirrors every row.
func (b Board) Reverse() Board {
	var out Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out[r][Size-1-c] = b[r][c]
		}
	}
	return out
}

// Log2 returns the exponent of a tile value (0 for an empty cell).
func Log2(v int) int {
	if v <= 0 {
		return 0
	}
	return bits.TrailingZeros(uint(v))
}

// String renders the board as a right-aligned grid, one row per line.
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			if b[r][c] == 0 {
				sb.WriteString("    .")
				continue
			}
			fmt.Fprintf(&sb, "%5d", b[r][c])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// LogValue logs the board compactly as "r0/r1/r2/r3".
func (b Board) LogValue() slog.Value {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < Size; c++ {
			if c > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(b[r][c]))
		}
	}
	return slog.StringValue(sb.String())
}
