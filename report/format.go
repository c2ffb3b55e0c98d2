package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

// Write renders r as plain terminal tables.
func Write(w io.Writer, r Report) error {
	s := r.Summary
	summary := newTable("games", "decisions", "best tile", "best score", "mean score", "mean nodes", "mean µs").
		Row(
			strconv.FormatInt(s.Games, 10),
			strconv.FormatInt(s.Decisions, 10),
			strconv.FormatInt(s.BestTile, 10),
			strconv.FormatInt(s.BestScore, 10),
			fmt.Sprintf("%.1f", s.MeanScore),
			fmt.Sprintf("%.0f", s.MeanNodes),
			fmt.Sprintf("%.0f", s.MeanElapsedUs),
		)

	games := newTable("game", "turns", "score", "max tile", "evaluator")
	for _, g := range r.Games {
		games.Row(g.GameID, strconv.FormatInt(g.Turns, 10), strconv.FormatInt(g.Score, 10), strconv.FormatInt(g.MaxTile, 10), g.Evaluator)
	}

	depths := newTable("depth", "decisions", "mean nodes", "mean µs", "memo clears")
	for _, d := range r.Depths {
		depths.Row(
			strconv.FormatInt(d.Depth, 10),
			strconv.FormatInt(d.Decisions, 10),
			fmt.Sprintf("%.0f", d.MeanNodes),
			fmt.Sprintf("%.0f", d.MeanElapsedUs),
			strconv.FormatInt(d.MemoClears, 10),
		)
	}

	sections := []struct {
		title string
		body  fmt.Stringer
	}{
		{"Summary", summary},
		{"Games", games},
		{"Max tile", bucketTable("max tile", r.MaxTiles)},
		{"Moves", bucketTable("move", r.Moves)},
		{"Depths", depths},
		{"Evaluators", bucketTable("evaluator", r.Evaluator)},
	}
	for _, sec := range sections {
		if _, err := fmt.Fprintf(w, "%s\n%s\n\n", titleStyle.Render(sec.title), sec.body); err != nil {
			return err
		}
	}
	return nil
}

func bucketTable(key string, buckets []Bucket) *table.Table {
	t := newTable(key, "count")
	for _, b := range buckets {
		t.Row(b.Key, strconv.FormatInt(b.Count, 10))
	}
	return t
}
