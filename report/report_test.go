package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
	"github.com/brensch/twenty48/store"
)

func decision(t *testing.T, gameID string, turn int, rows [][]int, score int, move game.Direction, hasMove bool, depth int) store.DecisionRow {
	t.Helper()
	b, err := game.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	a := search.Analysis{Move: move, HasMove: hasMove, Depth: depth, Empty: b.EmptyCount(), Nodes: 100 * depth}
	return store.NewDecisionRow(gameID, turn, b, score, a, search.EvaluatorSnake, "test")
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	small := [][]int{{2, 2, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	big := [][]int{{256, 2, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	rows := []store.DecisionRow{
		decision(t, "g1", 0, small, 0, game.Left, true, 4),
		decision(t, "g1", 1, small, 4, game.Left, true, 4),
		decision(t, "g1", 2, big, 900, 0, false, 0),
		decision(t, "g2", 0, small, 0, game.Up, true, 5),
		decision(t, "g2", 1, small, 8, 0, false, 0),
	}
	if _, err := store.WriteBatchParquetAtomic(dir, rows); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return dir
}

func TestReport_OverBatches(t *testing.T) {
	ctx := context.Background()
	db, err := Open([]string{writeFixture(t)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s, err := db.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Games != 2 || s.Decisions != 5 || s.BestTile != 256 || s.BestScore != 900 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	games, err := db.Games(ctx, 0)
	if err != nil {
		t.Fatalf("Games: %v", err)
	}
	if len(games) != 2 || games[0].GameID != "g1" || games[0].Turns != 3 || games[0].MaxTile != 256 {
		t.Fatalf("unexpected games: %+v", games)
	}

	moves, err := db.MoveMix(ctx)
	if err != nil {
		t.Fatalf("MoveMix: %v", err)
	}
	got := map[string]int64{}
	for _, b := range moves {
		got[b.Key] = b.Count
	}
	if got["left"] != 2 || got["up"] != 1 || got["none"] != 2 {
		t.Fatalf("unexpected move mix: %v", moves)
	}

	depths, err := db.Depths(ctx)
	if err != nil {
		t.Fatalf("Depths: %v", err)
	}
	if len(depths) != 2 || depths[0].Depth != 4 || depths[0].Decisions != 2 || depths[0].MeanNodes != 400 {
		t.Fatalf("unexpected depths: %+v", depths)
	}

	hist, err := db.MaxTileHistogram(ctx)
	if err != nil {
		t.Fatalf("MaxTileHistogram: %v", err)
	}
	if len(hist) != 2 || hist[0].Key != "256" || hist[0].Count != 1 {
		t.Fatalf("unexpected histogram: %+v", hist)
	}
}

func TestReport_SkipsWriterTmpDirs(t *testing.T) {
	root := writeFixture(t)
	small := [][]int{{2, 2, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}

	// Files still in a writer's tmp/ are either unfinished or not yet published.
	stray := []store.DecisionRow{decision(t, "stray", 0, small, 0, game.Left, true, 4)}
	if err := store.WriteDecisionsParquet(filepath.Join(root, "tmp", "stray.parquet"), stray); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "tmp", "partial.parquet"), []byte("PAR1"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	nested := []store.DecisionRow{decision(t, "g3", 0, small, 0, game.Right, true, 4)}
	if _, err := store.WriteBatchParquetAtomic(filepath.Join(root, "run2"), nested); err != nil {
		t.Fatalf("write nested: %v", err)
	}

	db, err := Open([]string{root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s, err := db.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.Games != 3 || s.Decisions != 6 {
		t.Fatalf("root %s: want 3 games / 6 decisions, got %+v", root, s)
	}
}

func TestReport_EmptyRoot(t *testing.T) {
	db, err := Open([]string{t.TempDir()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	r, err := db.Build(context.Background(), 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Summary.Games != 0 || len(r.Games) != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestWrite(t *testing.T) {
	db, err := Open([]string{writeFixture(t)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	r, err := db.Build(context.Background(), 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, want := range []string{"Summary", "g1", "left", "256"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("report output missing %q:\n%s", want, buf.String())
		}
	}
}
