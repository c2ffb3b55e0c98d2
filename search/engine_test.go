package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/rules"
)

func newEngine(t testing.TB, config Config) *Engine {
	t.Helper()
	e, err := New(config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// packedBoard has no empty cells and no equal neighbours.
var packedBoard = game.Board{
	{2, 4, 8, 16},
	{4, 8, 16, 32},
	{8, 16, 32, 64},
	{16, 32, 64, 128},
}

func randomBoard(rng *rand.Rand, fill int) game.Board {
	var b game.Board
	for r := 0; r < game.Size; r++ {
		for c := 0; c < game.Size; c++ {
			if rng.Intn(16) < fill {
				b[r][c] = 1 << (1 + rng.Intn(6))
			}
		}
	}
	return b
}

func TestDepthFor(t *testing.T) {
	for empty := 0; empty <= 16; empty++ {
		want := 4
		switch {
		case empty <= 4:
			want = 6
		case empty <= 8:
			want = 5
		}
		if got := DepthFor(empty); got != want {
			t.Errorf("DepthFor(%d) = %d, want %d", empty, got, want)
		}
	}
}

func TestNew_UnknownEvaluator(t *testing.T) {
	if _, err := New(Config{Evaluator: "neural"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	e, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := e.Config()
	if got.MemoLimit != DefaultMemoLimit || got.MemoLimit != e.Memo().Limit() {
		t.Fatalf("MemoLimit = %d, table limit %d, want %d", got.MemoLimit, e.Memo().Limit(), DefaultMemoLimit)
	}
	if got.MaxChanceCells != DefaultMaxChanceCells || got.Evaluator != EvaluatorSnake {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestExpectimax_DepthZeroIsHeuristic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	e := newEngine(t, DefaultConfig())
	for i := 0; i < 200; i++ {
		b := randomBoard(rng, 10)
		want := e.Heuristic().Score(b)
		for _, tn := range []turn{playerTurn, computerTurn} {
			if got := e.expectimax(b, 0, tn); got != want {
				t.Fatalf("depth 0 turn %d: expected %v, got %v\n%s", tn, want, got, b)
			}
		}
	}
}

func TestExpectimax_StuckPlayerIsWorst(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	for _, depth := range []int{1, 2, 3} {
		if got := e.expectimax(packedBoard, depth, playerTurn); !math.IsInf(got, -1) {
			t.Errorf("depth %d: expected -Inf for a stuck player, got %v", depth, got)
		}
	}
}

func TestExpectimax_FullBoardChanceNodeIsHeuristic(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	want := e.Heuristic().Score(packedBoard)
	if got := e.expectimax(packedBoard, 3, computerTurn); got != want {
		t.Fatalf("expected heuristic %v, got %v", want, got)
	}
}

func TestExpectimax_ChanceNodeTruncatesRowMajor(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	b := game.Board{
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 2, 4},
		{2, 4, 8, 16},
	}
	if len(b.EmptyCells()) != 10 {
		t.Fatalf("fixture should have 10 empty cells")
	}

	h := e.Heuristic()
	total := 0.0
	for _, c := range b.EmptyCells()[:DefaultMaxChanceCells] {
		total += spawnTwoProb * h.Score(b.With(c.Row, c.Col, 2))
		total += spawnFourProb * h.Score(b.With(c.Row, c.Col, 4))
	}

	got := e.expectimax(b, 1, computerTurn)
	if want := total / DefaultMaxChanceCells; !approxEqual(got, want) {
		t.Fatalf("expected mean over first 6 cells %v, got %v", want, got)
	}

	stored, ok := e.Memo().Get(b, 1)
	if !ok {
		t.Fatalf("chance node result was not cached")
	}
	if !approxEqual(stored, total) {
		t.Fatalf("expected cached undivided total %v, got %v", total, stored)
	}
}

func TestExpectimax_PlayerNodeIsMax(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	b := game.Board{
		{2, 2, 0, 0},
		{4, 0, 0, 0},
	}
	want := negInf
	h := e.Heuristic()
	for _, d := range game.Directions {
		next := rules.Simulate(b, d)
		if next == b {
			continue
		}
		if s := h.Score(next); s > want {
			want = s
		}
	}
	if got := e.expectimax(b, 1, playerTurn); got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestBestMove_PairMergesSideways(t *testing.T) {
	e := newEngine(t, Config{Depth: 1})
	b := game.Board{
		{2, 2, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	}
	a := e.Analyze(b)
	if !a.HasMove {
		t.Fatalf("expected a move")
	}
	if a.Move != game.Left && a.Move != game.Right {
		t.Fatalf("expected left or right, got %s (scores %v)", a.Move, a.Scores)
	}
	if a.Legal[game.Up] {
		t.Fatalf("up is a no-op on this board")
	}
	if !math.IsInf(a.Scores[game.Up], -1) {
		t.Fatalf("illegal move should score -Inf, got %v", a.Scores[game.Up])
	}
	if a.Depth != 1 {
		t.Fatalf("expected forced depth 1, got %d", a.Depth)
	}
}

func TestBestMove_NoLegalMove(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	if d, ok := e.BestMove(packedBoard); ok {
		t.Fatalf("expected no move, got %s", d)
	}
}

func TestBestMove_NeverReturnsNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	e := newEngine(t, Config{Depth: 2})
	for i := 0; i < 100; i++ {
		b := randomBoard(rng, 12)
		d, ok := e.BestMove(b)
		if !ok {
			if len(rules.GetLegalMoves(b)) != 0 {
				t.Fatalf("no move returned for a board with legal moves:\n%s", b)
			}
			continue
		}
		if rules.Simulate(b, d) == b {
			t.Fatalf("returned no-op %s for:\n%s", d, b)
		}
	}
}

func TestBestMove_LegalMoveDespiteStuckSubtrees(t *testing.T) {
	// Up and left are legal, but every spawn after either leaves the player
	// stuck, so both score -Inf. A move must still be returned.
	b := game.Board{
		{0, 64, 16, 8},
		{32, 8, 64, 32},
		{16, 32, 16, 8},
		{64, 16, 8, 32},
	}
	e := newEngine(t, Config{Depth: 2})
	a := e.Analyze(b)
	if !math.IsInf(a.Scores[game.Up], -1) || !math.IsInf(a.Scores[game.Left], -1) {
		t.Fatalf("expected -Inf for up and left, got %v", a.Scores)
	}
	if !a.HasMove || a.Move != game.Up {
		t.Fatalf("expected first legal move up, got %s ok=%v", a.Move, a.HasMove)
	}
}

func TestAnalyze_AdaptiveDepth(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	b := game.Board{
		{2, 4, 8, 16},
		{4, 8, 16, 32},
		{8, 16, 32, 64},
		{0, 0, 2, 2},
	}
	a := e.Analyze(b)
	if a.Empty != 2 || a.Depth != 6 {
		t.Fatalf("expected empty=2 depth=6, got empty=%d depth=%d", a.Empty, a.Depth)
	}
	if !a.HasMove {
		t.Fatalf("expected a move")
	}
}

func TestAnalyze_MemoHitReturnsStoredTotal(t *testing.T) {
	e := newEngine(t, Config{Depth: 1})
	b := game.Board{{2, 2, 0, 0}}

	first := e.Analyze(b)
	if first.MemoHits != 0 {
		t.Fatalf("fresh engine should not hit the memo, got %d", first.MemoHits)
	}
	second := e.Analyze(b)

	// Each legal root child is now answered from the cache without recursion.
	legal := len(rules.GetLegalMoves(b))
	if second.Nodes != legal || second.MemoHits != uint64(legal) {
		t.Fatalf("expected %d nodes and hits, got nodes=%d hits=%d", legal, second.Nodes, second.MemoHits)
	}
	// The cache stores the undivided total over the 6 expanded cells.
	if want := first.Scores[game.Left] * DefaultMaxChanceCells; math.Abs(second.Scores[game.Left]-want) > 1e-6*math.Abs(want) {
		t.Fatalf("expected cached left score %v, got %v", want, second.Scores[game.Left])
	}
}

func TestAnalyze_ClearsMemoAfterExceedingLimit(t *testing.T) {
	b := game.Board{{2, 2, 0, 0}}
	e := newEngine(t, Config{Depth: 1, MemoLimit: 2})

	first := e.Analyze(b)
	if first.MemoCleared {
		t.Fatalf("first call should not clear")
	}
	if e.Memo().Len() <= 2 {
		t.Fatalf("fixture should overflow the limit, have %d entries", e.Memo().Len())
	}

	second := e.Analyze(b)
	if !second.MemoCleared {
		t.Fatalf("expected memo clear on the call after overflow")
	}
	if second.MemoHits != 0 {
		t.Fatalf("expected a cold table after clear, got %d hits", second.MemoHits)
	}
	if second.Scores != first.Scores {
		t.Fatalf("recomputed scores differ: %v vs %v", second.Scores, first.Scores)
	}
	if e.Memo().Stats().Clears != 1 {
		t.Fatalf("expected one clear, got %d", e.Memo().Stats().Clears)
	}
}

func TestAnalyze_CornerEvaluator(t *testing.T) {
	e := newEngine(t, Config{Depth: 1, Evaluator: EvaluatorCorner})
	if e.Heuristic().Weights != CornerWeights {
		t.Fatalf("expected corner weights")
	}
	if _, ok := e.BestMove(game.Board{{2, 2, 0, 0}}); !ok {
		t.Fatalf("expected a move")
	}
}

func BenchmarkBestMove(b *testing.B) {
	board := game.Board{
		{2, 4, 8, 16},
		{0, 2, 4, 32},
		{0, 0, 2, 64},
		{0, 0, 0, 128},
	}
	for i := 0; i < b.N; i++ {
		e := newEngine(b, DefaultConfig())
		e.BestMove(board)
	}
}
