// Command advise prints the best move for one board.
//
// The board comes from -board, -file, -url or stdin, as 16 numbers, JSON
// rows, or an HTML snapshot of the web game. The answer is one of up, down,
// left, right, or "none" when no move changes the board.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brensch/twenty48/config"
	"github.com/brensch/twenty48/game"
	"github.com/brensch/twenty48/pageboard"
	"github.com/brensch/twenty48/search"
	"github.com/brensch/twenty48/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	boardArg := fs.String("board", "", "Board as 16 numbers or JSON rows")
	file := fs.String("file", "", "Read the board from this file (numbers, JSON or HTML)")
	url := fs.String("url", "", "Fetch an HTML page and read the board from its tiles")
	verbose := fs.Bool("v", false, "Print the board and every direction's score")
	logDir := fs.String("log-dir", config.GetEnvOrDefault("ADVISE_LOG_DIR", ""), "If set, append the decision as a parquet batch here")
	logFile := fs.String("log-file", config.GetEnvOrDefault("ADVISE_LOG_FILE", ""), "If set, write the decision to this parquet file (replacing it)")
	fetchTimeout := fs.Duration("fetch-timeout", config.GetEnvDurationOrDefault("FETCH_TIMEOUT", 10*time.Second), "Timeout for -url")
	engineFlags := config.RegisterEngine(fs)
	logFlags := config.RegisterLogging(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	logger, err := logFlags.Logger(os.Stderr)
	if err != nil {
		slog.Error("logging setup", "error", err)
		os.Exit(2)
	}

	b, err := loadBoard(*boardArg, *file, *url, *fetchTimeout)
	if err != nil {
		logger.Error("read board", "error", err)
		os.Exit(1)
	}

	engine, err := search.New(engineFlags.Config(logger))
	if err != nil {
		logger.Error("build engine", "error", err)
		os.Exit(1)
	}
	a := engine.Analyze(b)

	if *verbose {
		fmt.Fprintf(os.Stdout, "%s\n", b)
		for _, dir := range game.Directions {
			if a.Legal[dir] {
				fmt.Fprintf(os.Stdout, "%-6s %.2f\n", dir, a.Scores[dir])
			} else {
				fmt.Fprintf(os.Stdout, "%-6s no-op\n", dir)
			}
		}
		fmt.Fprintf(os.Stdout, "depth %d, %d nodes, %s\n", a.Depth, a.Nodes, a.Elapsed.Round(time.Microsecond))
	}
	if a.HasMove {
		fmt.Fprintln(os.Stdout, a.Move)
	} else {
		fmt.Fprintln(os.Stdout, "none")
	}

	if *logDir != "" || *logFile != "" {
		gameID := fmt.Sprintf("advise_%d", time.Now().UnixNano())
		row := store.NewDecisionRow(gameID, 0, b, 0, a, engine.Config().Evaluator, "advise")
		paths, err := recordDecision(row, *logDir, *logFile)
		if err != nil {
			logger.Error("log decision", "error", err)
			os.Exit(1)
		}
		logger.Debug("decision logged", "paths", paths)
	}
}

// recordDecision writes row as a new batch under dir and/or to file. Empty
// targets are skipped.
func recordDecision(row store.DecisionRow, dir, file string) ([]string, error) {
	rows := []store.DecisionRow{row}
	var paths []string
	if dir != "" {
		path, err := store.WriteBatchParquetAtomic(dir, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if file != "" {
		if err := store.WriteDecisionsParquet(file, rows); err != nil {
			return paths, err
		}
		paths = append(paths, file)
	}
	return paths, nil
}

func loadBoard(boardArg, file, url string, timeout time.Duration) (game.Board, error) {
	switch {
	case boardArg != "":
		return pageboard.Read([]byte(boardArg))
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return game.Board{}, fmt.Errorf("read %s: %w", file, err)
		}
		return pageboard.Read(data)
	case url != "":
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return pageboard.Fetch(ctx, nil, url)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return game.Board{}, fmt.Errorf("read stdin: %w", err)
		}
		return pageboard.Read(data)
	}
}
