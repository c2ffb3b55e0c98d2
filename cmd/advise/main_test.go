package main

import (
	"path/filepath"
	"testing"

	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/search"
	"github.com/brensch/twenty48/store"
)

func TestRecordDecision(t *testing.T) {
	b, err := game.FromRows([][]int{{2, 2, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	engine, err := search.New(search.Config{Depth: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	row := store.NewDecisionRow("advise_1", 0, b, 0, engine.Analyze(b), engine.Config().Evaluator, "advise")

	dir := t.TempDir()
	file := filepath.Join(dir, "single", "last.parquet")
	paths, err := recordDecision(row, filepath.Join(dir, "batches"), file)
	if err != nil {
		t.Fatalf("recordDecision: %v", err)
	}
	if len(paths) != 2 || paths[1] != file {
		t.Fatalf("unexpected paths: %v", paths)
	}

	for _, path := range paths {
		got, err := store.ReadDecisions(path)
		if err != nil {
			t.Fatalf("ReadDecisions(%s): %v", path, err)
		}
		if len(got) != 1 || got[0].GameID != "advise_1" || got[0].Move != row.Move {
			t.Fatalf("%s: unexpected rows %+v", path, got)
		}
	}

	// A second write replaces the named file rather than appending.
	if _, err := recordDecision(row, "", file); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := store.ReadDecisions(file)
	if err != nil || len(got) != 1 {
		t.Fatalf("rewrite left %d rows, err %v", len(got), err)
	}
	if leftovers, _ := filepath.Glob(file + ".tmp"); len(leftovers) != 0 {
		t.Fatalf("temp file left behind: %v", leftovers)
	}
}
