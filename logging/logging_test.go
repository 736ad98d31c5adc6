package logging_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meenmo/termfit/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestNew_FileOutput(t *testing.T) {
	t.Parallel()

	cfg := logging.DefaultConfig
	cfg.Output = "file"
	cfg.Format = "json"
	cfg.Level = "debug"
	cfg.Compress = false
	cfg.FilePath = filepath.Join(t.TempDir(), "nested", "termfit.log")

	l, err := logging.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("curve recalculated", "kind", "bootstrap")

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"curve recalculated"`) {
		t.Fatalf("log line missing: %s", data)
	}
}
