// Package config holds the flag and environment plumbing shared by the
// twenty48 commands.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brensch/twenty48/logging"
	"github.com/brensch/twenty48/search"
)

// Environment variables are namespaced with this prefix, e.g. T48_DEPTH.
const EnvPrefix = "T48_"

func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func GetEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// EngineFlags are the search tuning flags every command accepts.
type EngineFlags struct {
	Depth          int
	MemoLimit      int
	MaxChanceCells int
	Evaluator      string
}

// RegisterEngine adds -depth, -memo-limit, -chance-cells and -evaluator to fs.
func RegisterEngine(fs *flag.FlagSet) *EngineFlags {
	def := search.DefaultConfig()
	f := &EngineFlags{}
	fs.IntVar(&f.Depth, "depth", GetEnvIntOrDefault("DEPTH", 0), "Fixed search depth (0 = adaptive by empty cells)")
	fs.IntVar(&f.MemoLimit, "memo-limit", GetEnvIntOrDefault("MEMO_LIMIT", def.MemoLimit), "Memo entries before a full clear")
	fs.IntVar(&f.MaxChanceCells, "chance-cells", GetEnvIntOrDefault("CHANCE_CELLS", def.MaxChanceCells), "Empty cells expanded per chance node")
	fs.StringVar(&f.Evaluator, "evaluator", GetEnvOrDefault("EVALUATOR", def.Evaluator), "Leaf evaluator: snake or corner")
	return f
}

// Config converts the parsed flags into an engine config.
func (f *EngineFlags) Config(logger *slog.Logger) search.Config {
	return search.Config{
		Depth:          f.Depth,
		MemoLimit:      f.MemoLimit,
		MaxChanceCells: f.MaxChanceCells,
		Evaluator:      f.Evaluator,
		Logger:         logger,
	}
}

// LogFlags select the slog output.
type LogFlags struct {
	Format string
	Level  string
}

// RegisterLogging adds -log-format and -log-level to fs.
func RegisterLogging(fs *flag.FlagSet) *LogFlags {
	f := &LogFlags{}
	fs.StringVar(&f.Format, "log-format", GetEnvOrDefault("LOG_FORMAT", logging.FormatText), "Log format: text, json or pretty")
	fs.StringVar(&f.Level, "log-level", GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	return f
}

// Logger builds the logger and installs it as the slog default.
func (f *LogFlags) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.Setup(w, f.Format, f.Level)
}
