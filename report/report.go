// Package report summarises decision logs with DuckDB queries over the
// Parquet batches written by store.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DB is an in-memory DuckDB connection with a "decisions" view over one or
// more batch directories.
type DB struct {
	db    *sql.DB
	roots []string
}

// Open creates the decisions view over every *.parquet under roots. The
// batch writers' tmp/ directories are never globbed, so unfinished files are
// not read. Roots without any batches yield an empty view.
func Open(roots []string) (*DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	kept := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		dirs := batchDirs(root)
		if len(dirs) == 0 {
			continue
		}
		kept = append(kept, root)
		for _, dir := range dirs {
			globs = append(globs, "'"+escapeSQLString(filepath.Join(dir, "*.parquet"))+"'")
		}
	}

	var view string
	if len(globs) == 0 {
		view = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS game_id,
					NULL::INTEGER AS turn,
					NULL::INTEGER[] AS cells,
					NULL::INTEGER AS empty,
					NULL::INTEGER AS max_tile,
					NULL::BIGINT AS score,
					NULL::VARCHAR AS move,
					NULL::DOUBLE[] AS scores,
					NULL::BOOLEAN[] AS legal,
					NULL::INTEGER AS depth,
					NULL::BIGINT AS nodes,
					NULL::BIGINT AS memo_hits,
					NULL::INTEGER AS memo_size,
					NULL::BOOLEAN AS memo_cleared,
					NULL::BIGINT AS elapsed_us,
					NULL::VARCHAR AS evaluator,
					NULL::VARCHAR AS source,
					NULL::VARCHAR AS filename
			) WHERE 1=0`
	} else {
		view = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(view); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return &DB{db: db, roots: kept}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// batchDirs lists root and its subdirectories that hold at least one
// *.parquet file. Directories named tmp below root are skipped.
func batchDirs(root string) []string {
	var dirs []string
	seen := map[string]bool{}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != root && entry.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		dir := filepath.Dir(path)
		if strings.HasSuffix(entry.Name(), ".parquet") && !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
		return nil
	})
	return dirs
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Summary covers every decision in the view.
type Summary struct {
	Games         int64   `json:"games"`
	Decisions     int64   `json:"decisions"`
	BestTile      int64   `json:"best_tile"`
	BestScore     int64   `json:"best_score"`
	MeanScore     float64 `json:"mean_score"`
	MeanNodes     float64 `json:"mean_nodes"`
	MeanElapsedUs float64 `json:"mean_elapsed_us"`
}

// GameResult is the final state of one game.
type GameResult struct {
	GameID    string `json:"game_id"`
	Turns     int64  `json:"turns"`
	Score     int64  `json:"score"`
	MaxTile   int64  `json:"max_tile"`
	Evaluator string `json:"evaluator"`
}

// Bucket is one row of a grouped count.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// DepthStats aggregates decisions searched at one depth.
type DepthStats struct {
	Depth         int64   `json:"depth"`
	Decisions     int64   `json:"decisions"`
	MeanNodes     float64 `json:"mean_nodes"`
	MeanElapsedUs float64 `json:"mean_elapsed_us"`
	MemoClears    int64   `json:"memo_clears"`
}

// Report bundles every query for printing.
type Report struct {
	Summary   Summary      `json:"summary"`
	Games     []GameResult `json:"games"`
	MaxTiles  []Bucket     `json:"max_tiles"`
	Moves     []Bucket     `json:"moves"`
	Depths    []DepthStats `json:"depths"`
	Evaluator []Bucket     `json:"evaluators"`
}

const gameResultsSQL = `
	SELECT
		game_id,
		COUNT(*)::BIGINT AS turns,
		COALESCE(MAX(score), 0)::BIGINT AS score,
		COALESCE(MAX(max_tile), 0)::BIGINT AS max_tile,
		COALESCE(MIN(evaluator), '')::VARCHAR AS evaluator
	FROM decisions
	GROUP BY game_id`

func (d *DB) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	row := d.db.QueryRowContext(ctx, `
		WITH games AS (`+gameResultsSQL+`)
		SELECT
			(SELECT COUNT(*) FROM games)::BIGINT,
			(SELECT COUNT(*) FROM decisions)::BIGINT,
			COALESCE((SELECT MAX(max_tile) FROM games), 0)::BIGINT,
			COALESCE((SELECT MAX(score) FROM games), 0)::BIGINT,
			COALESCE((SELECT AVG(score) FROM games), 0)::DOUBLE,
			COALESCE((SELECT AVG(nodes) FROM decisions), 0)::DOUBLE,
			COALESCE((SELECT AVG(elapsed_us) FROM decisions), 0)::DOUBLE`)
	if err := row.Scan(&s.Games, &s.Decisions, &s.BestTile, &s.BestScore, &s.MeanScore, &s.MeanNodes, &s.MeanElapsedUs); err != nil {
		return Summary{}, fmt.Errorf("query summary: %w", err)
	}
	return s, nil
}

// Games returns per-game results, best score first. limit <= 0 returns all.
func (d *DB) Games(ctx context.Context, limit int) ([]GameResult, error) {
	q := gameResultsSQL + ` ORDER BY score DESC, game_id`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer rows.Close()

	var out []GameResult
	for rows.Next() {
		var g GameResult
		if err := rows.Scan(&g.GameID, &g.Turns, &g.Score, &g.MaxTile, &g.Evaluator); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MaxTileHistogram counts games by the largest tile they reached.
func (d *DB) MaxTileHistogram(ctx context.Context) ([]Bucket, error) {
	return d.buckets(ctx, `
		WITH games AS (`+gameResultsSQL+`)
		SELECT max_tile::VARCHAR, COUNT(*)::BIGINT
		FROM games
		GROUP BY max_tile
		ORDER BY max_tile DESC`)
}

// MoveMix counts chosen directions. Decisions with no legal move appear as "none".
func (d *DB) MoveMix(ctx context.Context) ([]Bucket, error) {
	return d.buckets(ctx, `
		SELECT CASE WHEN move = '' OR move IS NULL THEN 'none' ELSE move END AS m, COUNT(*)::BIGINT
		FROM decisions
		GROUP BY m
		ORDER BY 2 DESC, 1`)
}

// EvaluatorMix counts games per evaluator.
func (d *DB) EvaluatorMix(ctx context.Context) ([]Bucket, error) {
	return d.buckets(ctx, `
		WITH games AS (`+gameResultsSQL+`)
		SELECT evaluator, COUNT(*)::BIGINT
		FROM games
		GROUP BY evaluator
		ORDER BY 2 DESC, 1`)
}

func (d *DB) buckets(ctx context.Context, q string) ([]Bucket, error) {
	rows, err := d.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Depths groups decisions by search depth.
func (d *DB) Depths(ctx context.Context) ([]DepthStats, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			depth::BIGINT,
			COUNT(*)::BIGINT,
			AVG(nodes)::DOUBLE,
			AVG(elapsed_us)::DOUBLE,
			COUNT(*) FILTER (WHERE memo_cleared)::BIGINT
		FROM decisions
		WHERE move <> ''
		GROUP BY depth
		ORDER BY depth`)
	if err != nil {
		return nil, fmt.Errorf("query depths: %w", err)
	}
	defer rows.Close()

	var out []DepthStats
	for rows.Next() {
		var s DepthStats
		if err := rows.Scan(&s.Depth, &s.Decisions, &s.MeanNodes, &s.MeanElapsedUs, &s.MemoClears); err != nil {
			return nil, fmt.Errorf("scan depth: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Build runs every query. gameLimit bounds the per-game list.
func (d *DB) Build(ctx context.Context, gameLimit int) (Report, error) {
	var r Report
	var err error
	if r.Summary, err = d.Summary(ctx); err != nil {
		return Report{}, err
	}
	if r.Games, err = d.Games(ctx, gameLimit); err != nil {
		return Report{}, err
	}
	if r.MaxTiles, err = d.MaxTileHistogram(ctx); err != nil {
		return Report{}, err
	}
	if r.Moves, err = d.MoveMix(ctx); err != nil {
		return Report{}, err
	}
	if r.Depths, err = d.Depths(ctx); err != nil {
		return Report{}, err
	}
	if r.Evaluator, err = d.EvaluatorMix(ctx); err != nil {
		return Report{}, err
	}
	return r, nil
}
