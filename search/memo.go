package search

import (
	"github.com/brensch/twenty48/game"
)

// DefaultMemoLimit is the entry count above which the memo table is dropped.
const DefaultMemoLimit = 50000

type memoEntry struct {
	depth int
	score float64
}

// MemoStats are cumulative counters for a MemoTable.
type MemoStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Clears  uint64 `json:"clears"`
}

// MemoTable caches search results keyed by board value.
//
// An entry answers any query whose requested depth is at most the depth it
// was computed at, returning the stored score unchanged. The table is cleared
// wholesale once it grows past its limit; there is no per-entry eviction.
// It is not safe for concurrent use.
type MemoTable struct {
	limit   int
	entries map[game.Board]memoEntry

	hits   uint64
	misses uint64
	clears uint64
}

// NewMemoTable returns an empty table. limit <= 0 selects DefaultMemoLimit.
func NewMemoTable(limit int) *MemoTable {
	if limit <= 0 {
		limit = DefaultMemoLimit
	}
	return &MemoTable{
		limit:   limit,
		entries: make(map[game.Board]memoEntry),
	}
}

// Get returns the cached score for b if it was computed at depth >= minDepth.
func (m *MemoTable) Get(b game.Board, minDepth int) (float64, bool) {
	e, ok := m.entries[b]
	if !ok || e.depth < minDepth {
		m.misses++
		return 0, false
	}
	m.hits++
	return e.score, true
}

// Put records score for b computed at depth, replacing any previous entry.
func (m *MemoTable) Put(b game.Board, depth int, score float64) {
	m.entries[b] = memoEntry{depth: depth, score: score}
}

// MaybeClear empties the table if it holds more than limit entries.
func (m *MemoTable) MaybeClear() bool {
	if len(m.entries) <= m.limit {
		return false
	}
	m.Clear()
	return true
}

// Clear drops every entry.
func (m *MemoTable) Clear() {
	m.entries = make(map[game.Board]memoEntry)
	m.clears++
}

func (m *MemoTable) Len() int   { return len(m.entries) }
func (m *MemoTable) Limit() int { return m.limit }

func (m *MemoTable) Stats() MemoStats {
	return MemoStats{
		Entries: len(m.entries),
		Hits:    m.hits,
		Misses:  m.misses,
		Clears:  m.clears,
	}
}
