// spawn.go implements the random tile placement that follows every move.

package game

import (
	"math/rand"
)

// SpawnSettings controls new tile generation.
type SpawnSettings struct {
	FourChance float64 // Probability that a spawned tile is a 4 instead of a 2
}

// DefaultSpawnSettings matches the original game (10% fours).
var DefaultSpawnSettings = SpawnSettings{FourChance: 0.1}

// SpawnRandomTile places a 2 or 4 on a uniformly chosen empty cell.
// It returns false if the board is full.
// If rng is nil, we use deterministic pseudo-random logic keyed on the board.
func SpawnRandomTile(b Board, rng *rand.Rand, settings SpawnSettings) (Board, bool) {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return b, false
	}

	var idx int
	var roll float64
	if rng != nil {
		idx = rng.Intn(len(empty))
		roll = rng.Float64()
	} else {
		h := boardHash(b)
		idx = int(deterministicU64Fast(h, 0x2048) % uint64(len(empty)))
		roll = float64(deterministicU64Fast(h, 0xF0F0)%1000) / 1000
	}

	value := 2
	if roll < settings.FourChance {
		value = 4
	}
	cell := empty[idx]
	return b.With(cell.Row, cell.Col, value), true
}

// NewGame returns a board with two spawned tiles.
func NewGame(rng *rand.Rand, settings SpawnSettings) Board {
	var b Board
	b, _ = SpawnRandomTile(b, rng, settings)
	b, _ = SpawnRandomTile(b, rng, settings)
	return b
}

func boardHash(b Board) uint64 {
	var h uint64
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			h = h<<4 | uint64(Log2(b[r][c])&0xF)
		}
	}
	return h
}

// deterministicU64Fast is a simple deterministic hasher for reproducibility.
func deterministicU64Fast(a, b uint64) uint64 {
	// Variant of splitmix64
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
