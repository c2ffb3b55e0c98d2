// Command report summarises decision logs written by selfplay.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brensch/twenty48/config"
	"github.com/brensch/twenty48/report"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dataDirs := fs.String("data-dir", config.GetEnvOrDefault("DATA_DIR", "data/selfplay"), "Comma-separated directories of decision batches")
	games := fs.Int("games", config.GetEnvIntOrDefault("REPORT_GAMES", 20), "How many games to list (0 = all)")
	asJSON := fs.Bool("json", config.GetEnvBoolOrDefault("REPORT_JSON", false), "Print the report as JSON")
	timeout := fs.Duration("timeout", config.GetEnvDurationOrDefault("REPORT_TIMEOUT", time.Minute), "Query timeout")
	logFlags := config.RegisterLogging(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	logger, err := logFlags.Logger(os.Stderr)
	if err != nil {
		slog.Error("logging setup", "error", err)
		os.Exit(2)
	}

	roots := parseDataRoots(*dataDirs)
	db, err := report.Open(roots)
	if err != nil {
		logger.Error("open decisions", "roots", roots, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	r, err := db.Build(ctx, *games)
	if err != nil {
		logger.Error("build report", "error", err)
		os.Exit(1)
	}
	logger.Debug("report built", "elapsed", time.Since(start), "games", r.Summary.Games)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(r)
	} else {
		err = report.Write(os.Stdout, r)
	}
	if err != nil {
		logger.Error("write report", "error", err)
		os.Exit(1)
	}
}

func parseDataRoots(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
