package config

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/brensch/twenty48/search"
)

func TestEnvFallbacks(t *testing.T) {
	t.Setenv(EnvPrefix+"WORKERS", "12")
	t.Setenv(EnvPrefix+"BAD_INT", "twelve")
	t.Setenv(EnvPrefix+"FLUSH", "90s")
	t.Setenv(EnvPrefix+"TUI", "yes")

	if got := GetEnvIntOrDefault("WORKERS", 1); got != 12 {
		t.Fatalf("GetEnvIntOrDefault = %d", got)
	}
	if got := GetEnvIntOrDefault("BAD_INT", 3); got != 3 {
		t.Fatalf("unparseable int should fall back, got %d", got)
	}
	if got := GetEnvDurationOrDefault("FLUSH", time.Second); got != 90*time.Second {
		t.Fatalf("GetEnvDurationOrDefault = %v", got)
	}
	if !GetEnvBoolOrDefault("TUI", false) {
		t.Fatalf("GetEnvBoolOrDefault should read yes as true")
	}
	if got := GetEnvOrDefault("UNSET_KEY", "x"); got != "x" {
		t.Fatalf("GetEnvOrDefault = %q", got)
	}
}

func TestRegisterEngine(t *testing.T) {
	t.Setenv(EnvPrefix+"EVALUATOR", search.EvaluatorCorner)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	ef := RegisterEngine(fs)
	lf := RegisterLogging(fs)
	if err := fs.Parse([]string{"-depth", "3", "-log-format", "json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg := ef.Config(nil)
	if cfg.Depth != 3 || cfg.Evaluator != search.EvaluatorCorner || cfg.MemoLimit != search.DefaultMemoLimit {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, err := search.New(cfg); err != nil {
		t.Fatalf("flags should build a valid engine: %v", err)
	}

	var buf bytes.Buffer
	logger, err := lf.Logger(&buf)
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	logger.Info("ready")
	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"ready"`)) {
		t.Fatalf("expected json output, got %s", buf.String())
	}
}
